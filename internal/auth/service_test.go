package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bank-assistant/internal/apperr"
	"github.com/iliyamo/bank-assistant/internal/queue"
	"github.com/iliyamo/bank-assistant/internal/repository"
	"github.com/iliyamo/bank-assistant/internal/utils"
)

const fixture = `customer_id,username,password_hash,first_name,last_name,email,account_type,account_status,balance,credit_score,risk_level,has_loans,loan_types,loan_amounts,monthly_payments,interest_rate,account_opened_date,last_transaction_date,preferred_contact_method,common_issues,security_question,security_answer
C001,jsmith,` + "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8" + `,John,Smith,john@example.com,checking,active,1500.50,720,low,yes,personal,5000.00,150.00,5.5,2020-01-15,2024-03-01,email,card declined,What is your pet's name?,Fluffy
C002,admin,admin123,Ada,Admin,ada@example.com,admin,active,0,800,low,no,none,0,0,0,2019-05-01,2024-03-02,phone,none,What city were you born in?,Paris
C003,jsmith,other,Jane,Shadow,jane@example.com,savings,active,10,600,high,no,none,0,0,0,2021-01-01,2024-01-01,email,none,,
`

type recorder struct{ events []queue.AuditEvent }

func (r *recorder) Record(_ context.Context, ev queue.AuditEvent) { r.events = append(r.events, ev) }

func (r *recorder) types() []string {
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestService(t *testing.T) (*Service, *repository.CSVStore, *clock, *recorder) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "customers.csv")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o644))
	store := repository.NewCSVStore(path)
	clk := &clock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	rec := &recorder{}
	svc := NewService(store, Options{Now: clk.now, Audit: rec})
	return svc, store, clk, rec
}

func TestValidateAcceptsSHA256AndPlaintext(t *testing.T) {
	svc, _, _, rec := newTestService(t)
	ctx := context.Background()

	res, err := svc.Validate(ctx, "jsmith", "password")
	require.NoError(t, err)
	assert.Equal(t, "customer", res.Role)
	assert.Equal(t, "John Smith", res.Name)
	assert.Equal(t, "C001", res.Customer.CustomerID, "first matching username wins")

	res, err = svc.Validate(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "admin", res.Role)

	assert.Equal(t, []string{queue.EventLoginSucceeded, queue.EventLoginSucceeded}, rec.types())
}

func TestValidateRejects(t *testing.T) {
	svc, _, _, rec := newTestService(t)
	ctx := context.Background()

	_, err := svc.Validate(ctx, "jsmith", "wrong")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = svc.Validate(ctx, "nobody", "password")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	assert.Equal(t, []string{queue.EventLoginFailed, queue.EventLoginFailed}, rec.types())
}

func TestResetFlow(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	token, err := svc.IssueResetToken(ctx, "admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	c, err := store.Get(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, token, c.ResetToken)
	assert.Equal(t, "2024-06-01T13:00:00Z", c.ResetTokenExpiry)

	assert.True(t, svc.ValidateResetToken(ctx, "admin", token))
	assert.False(t, svc.ValidateResetToken(ctx, "admin", "not-the-token"))
	assert.False(t, svc.ValidateResetToken(ctx, "admin", token[:len(token)-1]), "a prefix is not the token")
	assert.False(t, svc.ValidateResetToken(ctx, "admin", token+"0"))
	assert.False(t, svc.ValidateResetToken(ctx, "jsmith", token))

	require.NoError(t, svc.ResetPassword(ctx, "admin", token, "newpass1"))

	c, err = store.Get(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, utils.SHA256Hex("newpass1"), c.PasswordHash)
	assert.Empty(t, c.ResetToken)
	assert.Empty(t, c.ResetTokenExpiry)

	err = svc.ResetPassword(ctx, "admin", token, "another1")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated, "a token is single use")

	res, err := svc.Validate(ctx, "admin", "newpass1")
	require.NoError(t, err)
	assert.Equal(t, "admin", res.Role, "role survives a password reset")
}

func TestResetTokenExpiryBoundary(t *testing.T) {
	svc, _, clk, _ := newTestService(t)
	ctx := context.Background()
	issued := clk.t

	token, err := svc.IssueResetToken(ctx, "admin")
	require.NoError(t, err)

	clk.t = issued.Add(time.Hour)
	assert.True(t, svc.ValidateResetToken(ctx, "admin", token), "now == expiry is still valid")

	clk.t = issued.Add(time.Hour + time.Second)
	assert.False(t, svc.ValidateResetToken(ctx, "admin", token))
	assert.ErrorIs(t, svc.ResetPassword(ctx, "admin", token, "newpass1"), apperr.ErrUnauthenticated)
}

func TestResetTokenUnparseableExpiryFailsClosed(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	c, err := store.Get(ctx, "admin")
	require.NoError(t, err)
	c.ResetToken = "tok"
	c.ResetTokenExpiry = "tomorrow-ish"
	require.NoError(t, store.Put(ctx, c))

	assert.False(t, svc.ValidateResetToken(ctx, "admin", "tok"))
}

func TestResetTokenAcceptsZonelessExpiry(t *testing.T) {
	svc, store, clk, _ := newTestService(t)
	ctx := context.Background()

	c, err := store.Get(ctx, "admin")
	require.NoError(t, err)
	c.ResetToken = "tok"
	c.ResetTokenExpiry = clk.t.Add(30 * time.Minute).In(time.Local).Format("2006-01-02T15:04:05.000000")
	require.NoError(t, store.Put(ctx, c))

	assert.True(t, svc.ValidateResetToken(ctx, "admin", "tok"))
}

func TestIssueResetTokenUnknownUser(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.IssueResetToken(context.Background(), "nobody")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestResetPasswordValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.ResetPassword(ctx, "admin", "", "newpass1"), apperr.ErrValidation)
	assert.ErrorIs(t, svc.ResetPassword(ctx, "admin", "tok", "short"), apperr.ErrValidation)
}

func TestResetPasswordWithBcrypt(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	svc.scheme = utils.SchemeBcrypt
	svc.cost = 4
	ctx := context.Background()

	token, err := svc.IssueResetToken(ctx, "admin")
	require.NoError(t, err)
	require.NoError(t, svc.ResetPassword(ctx, "admin", token, "bcrypted"))

	c, err := store.Get(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, utils.MatchBcrypt, utils.VerifyPassword(c.PasswordHash, "bcrypted"))

	_, err = svc.Validate(ctx, "admin", "bcrypted")
	assert.NoError(t, err)
}

func TestSecurityQuestion(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	q, err := svc.SecurityQuestion(ctx, "jsmith")
	require.NoError(t, err)
	assert.Equal(t, "What is your pet's name?", q)

	q, err = svc.SecurityQuestion(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, decoyQuestion, q)
}

func TestVerifySecurityAnswer(t *testing.T) {
	svc, _, _, rec := newTestService(t)
	ctx := context.Background()

	q, err := svc.VerifySecurityAnswer(ctx, "jsmith", "  fluffy ")
	require.NoError(t, err)
	assert.Equal(t, "What is your pet's name?", q)

	_, wrong := svc.VerifySecurityAnswer(ctx, "jsmith", "rex")
	_, unknown := svc.VerifySecurityAnswer(ctx, "nobody", "rex")
	assert.ErrorIs(t, wrong, apperr.ErrUnauthenticated)
	assert.Equal(t, wrong, unknown, "unknown users look like wrong answers")

	assert.Equal(t, []string{queue.EventSecurityAnswerOK, queue.EventSecurityAnswerWrong, queue.EventSecurityAnswerWrong}, rec.types())
}
