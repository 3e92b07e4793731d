package authgate

import (
	"strings"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/identity"
)

// DeriveHandle picks the public handle of an account: the lower-cased local
// part of its email, or the account id when there is no usable email.
func DeriveHandle(acct identity.Account) string {
	local, _, found := strings.Cut(acct.Email, "@")
	local = strings.ToLower(strings.TrimSpace(local))
	if !found || local == "" {
		return acct.ID
	}
	return local
}
