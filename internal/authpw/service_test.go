package authpw

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"leancanvas/api/internal/store"
)

type fakeUserStore struct {
	usersByEmail map[string]store.User
	usersByID    map[string]store.User
	resets       map[string]string
	created      []store.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		usersByEmail: map[string]store.User{},
		usersByID:    map[string]store.User{},
		resets:       map[string]string{},
	}
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	user, ok := f.usersByEmail[email]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id string) (store.User, error) {
	user, ok := f.usersByID[id]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeUserStore) CreateUser(_ context.Context, user store.User) error {
	f.usersByEmail[user.Email] = user
	f.usersByID[user.ID] = user
	f.created = append(f.created, user)
	return nil
}

func (f *fakeUserStore) UpdateUserVerificationToken(context.Context, string, string, time.Time) error {
	return nil
}

func (f *fakeUserStore) VerifyUserEmail(_ context.Context, token string) error {
	for email, user := range f.usersByEmail {
		if user.VerificationToken == token {
			user.IsEmailVerified = true
			f.usersByEmail[email] = user
			f.usersByID[user.ID] = user
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeUserStore) UpdateUserPassword(_ context.Context, userID, passwordHash string) error {
	user := f.usersByID[userID]
	user.PasswordHash = passwordHash
	f.usersByID[userID] = user
	f.usersByEmail[user.Email] = user
	return nil
}

func (f *fakeUserStore) CreatePasswordReset(_ context.Context, userID, token string, _ time.Time) error {
	f.resets[token] = userID
	return nil
}

func (f *fakeUserStore) GetPasswordReset(_ context.Context, token string) (string, error) {
	userID, ok := f.resets[token]
	if !ok {
		return "", sql.ErrNoRows
	}
	return userID, nil
}

func (f *fakeUserStore) MarkPasswordResetUsed(_ context.Context, token string) error {
	delete(f.resets, token)
	return nil
}

func TestSignUpCreatesUnverifiedUser(t *testing.T) {
	fs := newFakeUserStore()
	svc := NewService(fs)

	resp, err := svc.SignUp(context.Background(), SignUpRequest{
		Email:    "Dana@Example.com",
		Password: "hunter2hunter2",
		Name:     "Dana",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if resp.UserID == "" || resp.VerificationToken == "" {
		t.Fatalf("expected user id and verification token, got %+v", resp)
	}
	if !resp.RequiresEmailVerify {
		t.Fatalf("expected RequiresEmailVerify")
	}

	created := fs.created[0]
	if created.Email != "dana@example.com" {
		t.Fatalf("expected lowercased email, got %q", created.Email)
	}
	if created.IsEmailVerified {
		t.Fatalf("new user must start unverified")
	}
	if created.PasswordHash == "hunter2hunter2" {
		t.Fatalf("password stored in the clear")
	}
}

func TestSignUpRejectsShortPassword(t *testing.T) {
	svc := NewService(newFakeUserStore())
	_, err := svc.SignUp(context.Background(), SignUpRequest{Email: "a@b.c", Password: "short", Name: "A"})
	if err == nil {
		t.Fatalf("expected error for short password")
	}
}

func TestSignUpRejectsDuplicateEmail(t *testing.T) {
	fs := newFakeUserStore()
	fs.usersByEmail["dana@example.com"] = store.User{ID: "usr_1", Email: "dana@example.com"}
	svc := NewService(fs)

	_, err := svc.SignUp(context.Background(), SignUpRequest{Email: "dana@example.com", Password: "longenough", Name: "Dana"})
	if err == nil || err.Error() != "email already registered" {
		t.Fatalf("expected duplicate email error, got %v", err)
	}
}

func TestSignInFlow(t *testing.T) {
	fs := newFakeUserStore()
	svc := NewService(fs)

	resp, err := svc.SignUp(context.Background(), SignUpRequest{
		Email:    "dana@example.com",
		Password: "hunter2hunter2",
		Name:     "Dana",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	// Unverified accounts get a verify-first response, not an error.
	signIn, err := svc.SignIn(context.Background(), SignInRequest{Email: "dana@example.com", Password: "hunter2hunter2"})
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	if !signIn.RequiresVerify {
		t.Fatalf("expected RequiresVerify before email verification")
	}

	if err := svc.VerifyEmail(context.Background(), resp.VerificationToken); err != nil {
		t.Fatalf("verify: %v", err)
	}

	signIn, err = svc.SignIn(context.Background(), SignInRequest{Email: "dana@example.com", Password: "hunter2hunter2"})
	if err != nil {
		t.Fatalf("signin after verify: %v", err)
	}
	if signIn.RequiresVerify {
		t.Fatalf("did not expect RequiresVerify after verification")
	}
	if signIn.User.ID != resp.UserID {
		t.Fatalf("expected user %s, got %s", resp.UserID, signIn.User.ID)
	}
}

func TestSignInRejectsWrongPassword(t *testing.T) {
	fs := newFakeUserStore()
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.DefaultCost)
	fs.usersByEmail["dana@example.com"] = store.User{
		ID:              "usr_1",
		Email:           "dana@example.com",
		PasswordHash:    string(hash),
		IsEmailVerified: true,
	}
	svc := NewService(fs)

	if _, err := svc.SignIn(context.Background(), SignInRequest{Email: "dana@example.com", Password: "wrong"}); err == nil {
		t.Fatalf("expected error for wrong password")
	}
}

func TestPasswordResetRoundTrip(t *testing.T) {
	fs := newFakeUserStore()
	hash, _ := bcrypt.GenerateFromPassword([]byte("old-password-1"), bcrypt.DefaultCost)
	fs.usersByEmail["dana@example.com"] = store.User{
		ID:              "usr_1",
		Email:           "dana@example.com",
		PasswordHash:    string(hash),
		IsEmailVerified: true,
	}
	fs.usersByID["usr_1"] = fs.usersByEmail["dana@example.com"]
	svc := NewService(fs)

	token, err := svc.RequestPasswordReset(context.Background(), "dana@example.com")
	if err != nil {
		t.Fatalf("request reset: %v", err)
	}
	if token == "" {
		t.Fatalf("expected reset token for existing account")
	}

	if err := svc.ResetPassword(context.Background(), ResetPasswordRequest{Token: token, NewPassword: "new-password-1"}); err != nil {
		t.Fatalf("reset: %v", err)
	}

	if _, err := svc.SignIn(context.Background(), SignInRequest{Email: "dana@example.com", Password: "new-password-1"}); err != nil {
		t.Fatalf("signin with new password: %v", err)
	}
}

func TestResetRequestForUnknownEmailIsSilent(t *testing.T) {
	svc := NewService(newFakeUserStore())
	token, err := svc.RequestPasswordReset(context.Background(), "ghost@example.com")
	if err != nil {
		t.Fatalf("expected silent success, got %v", err)
	}
	if token != "" {
		t.Fatalf("expected empty token for unknown email")
	}
}
