package service

import (
	"sync"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
)

// CredentialVerifier checks a candidate password against an account's hash.
type CredentialVerifier struct {
	Hasher PasswordHasher

	dummyOnce sync.Once
	dummyHash string
}

// Verify reports whether password matches the account. A nil account still
// costs one hash comparison so that response time does not reveal whether
// the account exists.
func (v *CredentialVerifier) Verify(account *domain.Account, password string) bool {
	if account == nil {
		_ = v.Hasher.Compare(v.dummy(), password)
		return false
	}
	if account.PasswordHash == "" {
		_ = v.Hasher.Compare(v.dummy(), password)
		return false
	}
	return v.Hasher.Compare(account.PasswordHash, password) == nil
}

func (v *CredentialVerifier) dummy() string {
	v.dummyOnce.Do(func() {
		// An unusable hash in the real format, costing the same to compare.
		h, err := v.Hasher.Hash("dummy password for absent accounts")
		if err == nil {
			v.dummyHash = h
		}
	})
	return v.dummyHash
}
