package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/verdantlabs/sprout/internal/auth/store"
	"github.com/verdantlabs/sprout/internal/auth/store/drivers/sqlite"
	"github.com/verdantlabs/sprout/pkg/jwtx"
)

// fakeMailer records outbound mail and can be told to fail.
type fakeMailer struct {
	mu    sync.Mutex
	sent  []fakeMail
	fail  bool
	errIs error
}

type fakeMail struct {
	To      string
	Subject string
	Body    string
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		if m.errIs != nil {
			return m.errIs
		}
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, fakeMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *fakeMailer) last(t *testing.T) fakeMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// scriptedCodes returns codes from a fixed sequence, repeating the last
// entry once exhausted.
func scriptedCodes(codes ...string) func(int) (string, error) {
	i := 0
	return func(int) (string, error) {
		c := codes[min(i, len(codes)-1)]
		i++
		return c, nil
	}
}

type testEnv struct {
	Store  store.Store
	Auth   *AuthService
	Tokens *TokenService
	Mailer *fakeMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	codec, err := jwtx.NewCodec("access-secret-for-tests", "refresh-secret-for-tests", "HS256")
	require.NoError(t, err)

	tokens := &TokenService{
		Codec:      codec,
		Store:      st,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}

	mailer := &fakeMailer{}

	otps := &OtpService{
		Store:      st,
		CodeLength: 6,
		TTL:        5 * time.Minute,
	}

	auth := &AuthService{
		Store:  st,
		Tokens: tokens,
		Otps:   otps,
		Flows: &OtpTokenService{
			Store:       st,
			Otps:        otps,
			TTL:         10 * time.Minute,
			ResendLimit: 3,
		},
		Mailer:       mailer,
		ResetTTL:     15 * time.Minute,
		ResetURLBase: "https://app.example.com/reset?token=",
	}

	return &testEnv{Store: st, Auth: auth, Tokens: tokens, Mailer: mailer}
}

// signupUser drives the full signup flow and returns the confirmed user's email.
func (e *testEnv) signupUser(t *testing.T, email, password string) {
	t.Helper()
	ctx := context.Background()

	e.Auth.Otps.GenerateCode = scriptedCodes("135790")
	require.NoError(t, e.Auth.Signup(ctx, SignupParams{
		Email:     email,
		FirstName: "Ivy",
		LastName:  "Reed",
		Password:  password,
	}))
	_, err := e.Auth.ConfirmSignup(ctx, email, "135790")
	require.NoError(t, err)
	e.Auth.Otps.GenerateCode = nil
}
