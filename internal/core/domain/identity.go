package domain

import "context"

// Identity is the resolved caller attached to a request after the access
// gate has verified its token. It lives for a single request.
type Identity struct {
	User        *User
	Position    *Position
	Permissions Permissions
}

func (i *Identity) UserID() string { return i.User.ID }

func (i *Identity) Role() Role { return i.User.Role }

// Profile returns the public view of the identity's user.
func (i *Identity) Profile() Profile {
	return NewProfile(i.User, i.Position)
}

type identityKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom retrieves the identity stored by WithIdentity.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}
