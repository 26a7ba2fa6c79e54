package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/tripbot/core/logger"
)

type fakeContext struct {
	tele.Context
	user *tele.User
	vals map[string]interface{}
}

func (f *fakeContext) Sender() *tele.User              { return f.user }
func (f *fakeContext) Chat() *tele.Chat                { return &tele.Chat{ID: 9} }
func (f *fakeContext) Update() tele.Update             { return tele.Update{ID: 4} }
func (f *fakeContext) Get(key string) interface{}      { return f.vals[key] }
func (f *fakeContext) Set(key string, val interface{}) { f.vals[key] = val }

func TestBeginStoresContext(t *testing.T) {
	c := &fakeContext{user: &tele.User{ID: 7}, vals: map[string]interface{}{}}

	ctx := Begin(c)
	rid, _ := c.vals["rid"].(string)
	assert.NotEmpty(t, rid)
	assert.Equal(t, rid, logger.RIDFrom(ctx))
	assert.Equal(t, int64(7), logger.UserIDFrom(ctx))
	assert.Equal(t, ctx, BuildContext(c))

	ctx = WithHandler(c, "addtrip")
	assert.Equal(t, "addtrip", logger.HandlerFrom(ctx))
	assert.Equal(t, "addtrip", logger.HandlerFrom(BuildContext(c)))
}

func TestIDsWithoutSender(t *testing.T) {
	c := &fakeContext{vals: map[string]interface{}{}}
	updateID, userID, chatID := IDs(c)
	assert.Equal(t, 4, updateID)
	assert.Zero(t, userID)
	assert.Equal(t, int64(9), chatID)
	assert.Zero(t, UserID(c))
}
