package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Fantasim/solbatch/internal/wallet"
)

var (
	keysWords      int
	keysIndex      uint32
	keysKey        string
	keysKeyFile    string
	keysTo         string
	keysPassphrase string

	keysCmd = &cobra.Command{
		Use:   "keys",
		Short: "Key generation, conversion and file encryption",
	}

	keysNewCmd = &cobra.Command{
		Use:   "new",
		Short: "Generate a mnemonic and its derived keypair",
		Example: `  solbatch keys new
  solbatch keys new --words 24 --index 3`,
		RunE: runKeysNew,
	}

	keysConvertCmd = &cobra.Command{
		Use:   "convert",
		Short: "Convert a secret key between base58 and JSON-array encodings",
		Example: `  solbatch keys convert --key <base58> --to json
  solbatch keys convert --key-file wallet.json --to base58`,
		RunE: runKeysConvert,
	}

	keysEncryptCmd = &cobra.Command{
		Use:   "encrypt IN OUT",
		Short: "Encrypt a key file with a passphrase",
		Args:  cobra.ExactArgs(2),
		RunE:  runKeysEncrypt,
	}

	keysDecryptCmd = &cobra.Command{
		Use:   "decrypt IN OUT",
		Short: "Decrypt an encrypted key file",
		Args:  cobra.ExactArgs(2),
		RunE:  runKeysDecrypt,
	}
)

func init() {
	keysNewCmd.Flags().IntVar(&keysWords, "words", 12, "mnemonic length (12 or 24)")
	keysNewCmd.Flags().Uint32Var(&keysIndex, "index", 0, "derivation account index")

	keysConvertCmd.Flags().StringVar(&keysKey, "key", "", "secret key (base58 or JSON array)")
	keysConvertCmd.Flags().StringVar(&keysKeyFile, "key-file", "", "path to key file")
	keysConvertCmd.Flags().StringVar(&keysTo, "to", "", "target encoding: base58 or json (required)")
	keysConvertCmd.MarkFlagRequired("to")

	keysEncryptCmd.Flags().StringVar(&keysPassphrase, "passphrase", "", "encryption passphrase (required)")
	keysEncryptCmd.MarkFlagRequired("passphrase")
	keysDecryptCmd.Flags().StringVar(&keysPassphrase, "passphrase", "", "decryption passphrase (required)")
	keysDecryptCmd.MarkFlagRequired("passphrase")

	keysCmd.AddCommand(keysNewCmd, keysConvertCmd, keysEncryptCmd, keysDecryptCmd)
	rootCmd.AddCommand(keysCmd)
}

func runKeysNew(cmd *cobra.Command, args []string) error {
	mnemonic, err := wallet.NewMnemonic(keysWords)
	if err != nil {
		return err
	}

	kp, err := wallet.FromMnemonic(mnemonic, keysIndex)
	if err != nil {
		return err
	}

	fmt.Printf("mnemonic: %s\n", mnemonic)
	fmt.Printf("address:  %s\n", kp.Address())
	fmt.Printf("secret:   %s\n", kp.SecretBase58())
	return nil
}

func runKeysConvert(cmd *cobra.Command, args []string) error {
	kp, err := wallet.Load(keysKey, keysKeyFile)
	if err != nil {
		return err
	}

	switch keysTo {
	case "base58":
		fmt.Println(kp.SecretBase58())
	case "json":
		out, err := kp.SecretJSONArray()
		if err != nil {
			return err
		}
		fmt.Println(out)
	default:
		return fmt.Errorf("unknown target encoding %q (want base58 or json)", keysTo)
	}
	return nil
}

func runKeysEncrypt(cmd *cobra.Command, args []string) error {
	if err := wallet.EncryptFile(args[0], args[1], keysPassphrase); err != nil {
		return err
	}
	fmt.Printf("encrypted %s -> %s\n", args[0], args[1])
	return nil
}

func runKeysDecrypt(cmd *cobra.Command, args []string) error {
	if err := wallet.DecryptFile(args[0], args[1], keysPassphrase); err != nil {
		return err
	}
	fmt.Printf("decrypted %s -> %s\n", args[0], args[1])
	return nil
}
