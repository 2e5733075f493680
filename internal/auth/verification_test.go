package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/bookstore-backend/internal/dbtest"
	"github.com/angelmondragon/bookstore-backend/internal/users"
	"github.com/angelmondragon/bookstore-backend/pkg/config"
	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bookstore-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type captureSender struct {
	phone    string
	messages []string
	err      error
}

func (c *captureSender) Send(_ context.Context, phone, message string) error {
	if c.err != nil {
		return c.err
	}
	c.phone = phone
	c.messages = append(c.messages, message)
	return nil
}

func (c *captureSender) lastCode(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, c.messages)
	msg := c.messages[len(c.messages)-1]
	return msg[strings.LastIndex(msg, " ")+1:]
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newVerification(t *testing.T, cfg config.VerificationConfig) (VerificationService, *captureSender, *clock, *gorm.DB, models.User) {
	t.Helper()
	client, conn := dbtest.Client(t)
	sender := &captureSender{}
	clk := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc, err := NewVerificationService(VerificationParams{
		DB:     client,
		Users:  users.NewRepository(conn),
		Sender: sender,
		Config: cfg,
		Now:    clk.Now,
	})
	require.NoError(t, err)
	return svc, sender, clk, conn, dbtest.SeedUser(t, conn, "verifier")
}

func reasonOf(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), err.Error())
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	return details["reason"]
}

func TestSendCodeAndVerify(t *testing.T) {
	svc, sender, _, conn, user := newVerification(t, config.VerificationConfig{})
	ctx := context.Background()

	result, err := svc.SendCode(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, result.Code)
	assert.NotEqual(t, user.Phone, result.Destination)
	assert.Equal(t, user.Phone, sender.phone)

	code := sender.lastCode(t)
	assert.Len(t, code, 6)

	require.NoError(t, svc.Verify(ctx, user.ID, code))

	var stored models.User
	require.NoError(t, conn.First(&stored, "id = ?", user.ID).Error)
	assert.True(t, stored.IsVerified)
	assert.Nil(t, stored.VerificationCode)

	_, err = svc.SendCode(ctx, user.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestVerifyWithoutCode(t *testing.T) {
	svc, _, _, _, user := newVerification(t, config.VerificationConfig{})
	assert.Equal(t, ReasonNotFound, reasonOf(t, svc.Verify(context.Background(), user.ID, "123456")))
}

func TestVerifyWrongThenExpiredCode(t *testing.T) {
	svc, sender, clk, _, user := newVerification(t, config.VerificationConfig{CodeTTL: 10 * time.Minute})
	ctx := context.Background()

	_, err := svc.SendCode(ctx, user.ID)
	require.NoError(t, err)
	code := sender.lastCode(t)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	assert.Equal(t, ReasonMismatch, reasonOf(t, svc.Verify(ctx, user.ID, wrong)))

	clk.now = clk.now.Add(11 * time.Minute)
	assert.Equal(t, ReasonExpired, reasonOf(t, svc.Verify(ctx, user.ID, code)))
	assert.Equal(t, ReasonExpired, reasonOf(t, svc.Verify(ctx, user.ID, wrong)))
}

func TestSendCodeOverwritesPreviousCode(t *testing.T) {
	svc, sender, clk, _, user := newVerification(t, config.VerificationConfig{ExposeCode: true, CodeLength: 8})
	ctx := context.Background()

	first, err := svc.SendCode(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, first.Code, 8)

	clk.now = clk.now.Add(time.Minute)
	second, err := svc.SendCode(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, second.Code, sender.lastCode(t))
	assert.True(t, second.ExpiresAt.After(first.ExpiresAt))

	if first.Code != second.Code {
		assert.Equal(t, ReasonMismatch, reasonOf(t, svc.Verify(ctx, user.ID, first.Code)))
	}
	require.NoError(t, svc.Verify(ctx, user.ID, second.Code))
}

func TestSendCodeDeliveryFailure(t *testing.T) {
	svc, sender, _, _, user := newVerification(t, config.VerificationConfig{})
	sender.err = errors.New("gateway unavailable")

	_, err := svc.SendCode(context.Background(), user.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
