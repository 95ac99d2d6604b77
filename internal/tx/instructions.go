package tx

import (
	"encoding/binary"

	"github.com/Fantasim/solbatch/internal/config"
)

// Well-known Solana program IDs (parsed once at init).
var (
	SystemProgramID          PublicKey
	TokenProgramID           PublicKey
	Token2022ProgramID       PublicKey
	AssociatedTokenProgramID PublicKey
	RentSysvarID             PublicKey
	NativeMint               PublicKey
)

func init() {
	for _, p := range []struct {
		dst  *PublicKey
		addr string
	}{
		{&SystemProgramID, config.SystemProgramID},
		{&TokenProgramID, config.TokenProgramID},
		{&Token2022ProgramID, config.Token2022ProgramID},
		{&AssociatedTokenProgramID, config.AssociatedTokenProgramID},
		{&RentSysvarID, config.RentSysvarID},
		{&NativeMint, config.NativeMint},
	} {
		pk, err := PublicKeyFromBase58(p.addr)
		if err != nil {
			panic("invalid well-known program ID " + p.addr + ": " + err.Error())
		}
		*p.dst = pk
	}
}

// SPL Token instruction variant indexes.
const (
	splTransferVariant     = 3
	splCloseAccountVariant = 9
	splSyncNativeVariant   = 17
)

// NewSystemTransfer creates a SystemProgram.Transfer instruction.
// Data: [u32 LE: 2 (Transfer variant)] [u64 LE: lamports] = 12 bytes.
func NewSystemTransfer(from, to PublicKey, lamports uint64) Instruction {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], 2) // Transfer = variant index 2
	binary.LittleEndian.PutUint64(data[4:12], lamports)

	return Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			{PubKey: from, IsSigner: true, IsWritable: true},
			{PubKey: to, IsSigner: false, IsWritable: true},
		},
		Data: data,
	}
}

// NewTokenTransfer creates an SPL Token.Transfer instruction under the given
// token program (Token or Token-2022).
// Data: [u8: 3 (Transfer variant)] [u64 LE: amount] = 9 bytes.
func NewTokenTransfer(tokenProgram, sourceATA, destATA, owner PublicKey, amount uint64) Instruction {
	data := make([]byte, 9)
	data[0] = splTransferVariant
	binary.LittleEndian.PutUint64(data[1:9], amount)

	return Instruction{
		ProgramID: tokenProgram,
		Accounts: []AccountMeta{
			{PubKey: sourceATA, IsSigner: false, IsWritable: true},
			{PubKey: destATA, IsSigner: false, IsWritable: true},
			{PubKey: owner, IsSigner: true, IsWritable: false},
		},
		Data: data,
	}
}

// NewCloseAccount creates an SPL Token.CloseAccount instruction. The account's
// lamports (rent deposit, plus wrapped balance for wSOL accounts) are credited
// to dest.
// Data: [u8: 9 (CloseAccount variant)] = 1 byte.
func NewCloseAccount(tokenProgram, account, dest, owner PublicKey) Instruction {
	return Instruction{
		ProgramID: tokenProgram,
		Accounts: []AccountMeta{
			{PubKey: account, IsSigner: false, IsWritable: true},
			{PubKey: dest, IsSigner: false, IsWritable: true},
			{PubKey: owner, IsSigner: true, IsWritable: false},
		},
		Data: []byte{splCloseAccountVariant},
	}
}

// NewSyncNative creates an SPL Token.SyncNative instruction, updating a wSOL
// account's token amount to match its lamports.
// Data: [u8: 17 (SyncNative variant)] = 1 byte.
func NewSyncNative(account PublicKey) Instruction {
	return Instruction{
		ProgramID: TokenProgramID,
		Accounts: []AccountMeta{
			{PubKey: account, IsSigner: false, IsWritable: true},
		},
		Data: []byte{splSyncNativeVariant},
	}
}

// NewCreateATA creates a CreateAssociatedTokenAccount instruction for the
// given token program.
// Data: empty (0 bytes). Accounts: payer, ata, wallet, mint, system, token, rent (7 accounts).
func NewCreateATA(payer, ata, wallet, mint, tokenProgram PublicKey) Instruction {
	return Instruction{
		ProgramID: AssociatedTokenProgramID,
		Accounts: []AccountMeta{
			{PubKey: payer, IsSigner: true, IsWritable: true},
			{PubKey: ata, IsSigner: false, IsWritable: true},
			{PubKey: wallet, IsSigner: false, IsWritable: false},
			{PubKey: mint, IsSigner: false, IsWritable: false},
			{PubKey: SystemProgramID, IsSigner: false, IsWritable: false},
			{PubKey: tokenProgram, IsSigner: false, IsWritable: false},
			{PubKey: RentSysvarID, IsSigner: false, IsWritable: false},
		},
		Data: nil,
	}
}
