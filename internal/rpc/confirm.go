package rpc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Fantasim/solbatch/internal/config"
)

// WaitForConfirmation polls getSignatureStatuses until the transaction is
// confirmed or fails. Transient RPC errors are retried until the timeout.
func WaitForConfirmation(ctx context.Context, client Client, signature string) (uint64, error) {
	slog.Debug("waiting for confirmation", "signature", signature)

	pollCtx, cancel := context.WithTimeout(ctx, config.ConfirmationTimeout)
	defer cancel()

	for {
		statuses, err := client.GetSignatureStatuses(pollCtx, []string{signature})
		if err != nil {
			slog.Warn("confirmation poll error", "signature", signature, "error", err)
			// Transient RPC error, wait and retry.
		} else if len(statuses) > 0 {
			status := statuses[0]

			// Check for on-chain error.
			if status.Err != nil {
				slog.Error("transaction failed on-chain",
					"signature", signature,
					"error", status.Err,
				)
				return 0, fmt.Errorf("%w: %v", config.ErrTxFailed, status.Err)
			}

			// Check confirmation status.
			if status.ConfirmationStatus != nil {
				cs := *status.ConfirmationStatus
				if cs == "confirmed" || cs == "finalized" {
					slog.Info("transaction confirmed",
						"signature", signature,
						"slot", status.Slot,
						"confirmationStatus", cs,
					)
					return status.Slot, nil
				}
			}
		}

		// Not confirmed yet.
		select {
		case <-pollCtx.Done():
			return 0, fmt.Errorf("%w: signature %s", config.ErrConfirmationTimeout, signature)
		case <-time.After(config.ConfirmationPollInterval):
			slog.Debug("confirmation not ready, polling again", "signature", signature)
		}
	}
}
