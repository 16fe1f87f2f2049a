package adz

import (
	"github.com/cosmos/cosmos-sdk/types/bech32"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

const (
	AccountPrefix = "con"

	// DefaultModuleID seeds the escrow account when none is configured.
	DefaultModuleID = "py/adzes"

	moduleAccountSalt = "modl"
)

// PubkeyHashToAccount encodes a 20 byte address as an account id.
func PubkeyHashToAccount(addr []byte) (AccountID, error) {
	if len(addr) != 20 {
		return "", errors.Errorf("address must be 20 bytes, got %d", len(addr))
	}
	encoded, err := bech32.ConvertAndEncode(AccountPrefix, addr)
	if err != nil {
		return "", errors.Wrap(err, "bech32 encode failed")
	}
	return AccountID(encoded), nil
}

// ModuleAccount derives the fixed escrow account owned by a module.
func ModuleAccount(moduleID string) (AccountID, error) {
	if moduleID == "" {
		moduleID = DefaultModuleID
	}
	hash := crypto.Keccak256([]byte(moduleAccountSalt), []byte(moduleID))
	return PubkeyHashToAccount(hash[12:])
}
