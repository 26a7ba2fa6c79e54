package bot

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/tripbot/core/telegram"
	"github.com/m3rciful/tripbot/internal/calendar"
	"github.com/m3rciful/tripbot/internal/conversation"
	"github.com/m3rciful/tripbot/internal/domain"
	"github.com/m3rciful/tripbot/internal/store"
	"github.com/m3rciful/tripbot/internal/trips"
)

// fakeContext implements the parts of tele.Context the handlers touch; any
// other method panics through the nil embedded interface.
type fakeContext struct {
	tele.Context
	user *tele.User
	msg  *tele.Message
	args []string
	vals map[string]interface{}
	sent []interface{}
}

func newFakeContext(userID int64, text string, args ...string) *fakeContext {
	return &fakeContext{
		user: &tele.User{ID: userID},
		msg:  &tele.Message{ID: 1, Text: text},
		args: args,
		vals: map[string]interface{}{},
	}
}

func documentContext(userID int64, fileID, name, caption string) *fakeContext {
	c := newFakeContext(userID, "")
	c.msg.Caption = caption
	c.msg.Document = &tele.Document{File: tele.File{FileID: fileID}, FileName: name}
	return c
}

func (f *fakeContext) Sender() *tele.User     { return f.user }
func (f *fakeContext) Chat() *tele.Chat       { return &tele.Chat{ID: f.user.ID, Type: tele.ChatPrivate} }
func (f *fakeContext) Update() tele.Update    { return tele.Update{ID: 1, Message: f.msg} }
func (f *fakeContext) Message() *tele.Message { return f.msg }
func (f *fakeContext) Text() string           { return f.msg.Text }
func (f *fakeContext) Args() []string         { return f.args }

func (f *fakeContext) Get(key string) interface{}      { return f.vals[key] }
func (f *fakeContext) Set(key string, val interface{}) { f.vals[key] = val }

func (f *fakeContext) Send(what interface{}, _ ...interface{}) error {
	f.sent = append(f.sent, what)
	return nil
}

func (f *fakeContext) lastText(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.sent)
	s, ok := f.sent[len(f.sent)-1].(string)
	require.True(t, ok, "last message is %T", f.sent[len(f.sent)-1])
	return s
}

type fixture struct {
	store    *store.DocStore
	handlers *Handlers
	reg      *tg.Registry
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	st := store.NewMemory()
	h := New(conversation.NewManager(st), trips.NewService(st))
	h.now = func() time.Time { return time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC) }
	reg := tg.NewRegistry()
	h.Register(reg)
	return fixture{store: st, handlers: h, reg: reg}
}

func (fx fixture) command(t *testing.T, c *fakeContext, name string) {
	t.Helper()
	_, cmd, ok := fx.reg.LookupCommand(name)
	require.True(t, ok, "command %s not registered", name)
	require.NoError(t, cmd.Handler(c))
}

func TestRegisterCommands(t *testing.T) {
	fx := newFixture(t)
	for _, name := range []string{
		"/start", "/help", "/addtrip", "/edittrip", "/infoform", "/finish", "/cancel",
		"/listtrips", "/myprofile", "/calendar", "/startnotifications", "/stopnotifications", "/getid",
	} {
		_, _, ok := fx.reg.LookupCommand(name)
		assert.True(t, ok, name)
	}
	key, _, ok := fx.reg.LookupCommand("/newtrip")
	require.True(t, ok)
	assert.Equal(t, "/addtrip", key)

	help := helpText(fx.reg)
	assert.Contains(t, help, "/addtrip - ")
	assert.NotContains(t, help, "/start -")
	assert.NotNil(t, fx.reg.TextFallback())
	assert.NotNil(t, fx.reg.DocumentFallback())
}

func TestAddTripConversationThroughHandlers(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.command(t, newFakeContext(1, "/addtrip"), "/addtrip")
	assert.True(t, fx.handlers.InProgress(1))
	assert.False(t, fx.handlers.InProgress(2))

	for _, text := range []string{"Rome", "Italy", "2025-06-01", "2025-06-05"} {
		require.NoError(t, fx.handlers.HandleText(newFakeContext(1, text)))
	}
	require.NoError(t, fx.handlers.HandleDocument(documentContext(1, "f1", "ticket.pdf", "")))
	require.NoError(t, fx.handlers.HandleDocument(documentContext(1, "f2", "hotel.pdf", "")))

	done := newFakeContext(1, "/finish")
	fx.command(t, done, "/finish")
	assert.Contains(t, done.lastText(t), "Rome")
	assert.False(t, fx.handlers.InProgress(1))

	rec, err := fx.store.Load(ctx, 1)
	require.NoError(t, err)
	trip := rec.Trips["Rome"]
	assert.Equal(t, "Italy", trip.Destination)
	assert.Equal(t, "2025-06-01", trip.StartDate.String())
	assert.Equal(t, []domain.FileRef{{ID: "f1", Name: "ticket.pdf"}, {ID: "f2", Name: "hotel.pdf"}}, trip.Files)

	list := newFakeContext(1, "/listtrips")
	fx.command(t, list, "/listtrips")
	assert.Contains(t, list.lastText(t), "Rome: 2025-06-01 → 2025-06-05")
}

func TestDirectAddTripArgs(t *testing.T) {
	fx := newFixture(t)

	fx.command(t, newFakeContext(1, "/addtrip Oslo 2025-07-01", "Oslo", "2025-07-01"), "/addtrip")
	assert.False(t, fx.handlers.InProgress(1))

	rec, err := fx.store.Load(context.Background(), 1)
	require.NoError(t, err)
	require.Contains(t, rec.Trips, "Oslo")
	assert.Equal(t, rec.Trips["Oslo"].StartDate, rec.Trips["Oslo"].EndDate)

	again := newFakeContext(1, "/addtrip Oslo 2025-08-01", "Oslo", "2025-08-01")
	fx.command(t, again, "/addtrip")
	assert.Contains(t, again.lastText(t), "Oslo")
	rec, err = fx.store.Load(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "2025-07-01", rec.Trips["Oslo"].StartDate.String())
}

func TestFinishWithoutConversation(t *testing.T) {
	fx := newFixture(t)
	c := newFakeContext(1, "/finish")
	fx.command(t, c, "/finish")
	assert.Equal(t, MsgNothingToEnd, c.lastText(t))
}

func TestCancelClearsConversation(t *testing.T) {
	fx := newFixture(t)
	fx.command(t, newFakeContext(1, "/infoform"), "/infoform")
	require.True(t, fx.handlers.InProgress(1))

	fx.command(t, newFakeContext(1, "/cancel"), "/cancel")
	assert.False(t, fx.handlers.InProgress(1))
}

func TestDirectAttachment(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	_, err := fx.store.Update(ctx, 1, func(rec *domain.UserRecord) error {
		return rec.AddTrip("Rome", domain.Trip{StartDate: domain.MustDate("2025-06-01"), EndDate: domain.MustDate("2025-06-02")})
	})
	require.NoError(t, err)
	attach := fx.reg.DocumentFallback()

	noCaption := documentContext(1, "f1", "a.pdf", "")
	require.NoError(t, attach(noCaption))
	assert.Equal(t, trips.MsgNoCaption, noCaption.lastText(t))

	unknown := documentContext(1, "f1", "a.pdf", "Paris")
	require.NoError(t, attach(unknown))
	assert.Equal(t, trips.MsgTripNotFound, unknown.lastText(t))

	ok := documentContext(1, "f1", "a.pdf", " Rome ")
	require.NoError(t, attach(ok))
	assert.Contains(t, ok.lastText(t), "Rome")

	rec, err := fx.store.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []domain.FileRef{{ID: "f1", Name: "a.pdf"}}, rec.Trips["Rome"].Files)
}

func TestCalendarExport(t *testing.T) {
	fx := newFixture(t)

	empty := newFakeContext(1, "/calendar")
	fx.command(t, empty, "/calendar")
	assert.Equal(t, trips.MsgNoTrips, empty.lastText(t))

	_, err := fx.store.Update(context.Background(), 1, func(rec *domain.UserRecord) error {
		return rec.AddTrip("Rome", domain.Trip{Destination: "Italy", StartDate: domain.MustDate("2025-06-01"), EndDate: domain.MustDate("2025-06-05")})
	})
	require.NoError(t, err)

	c := newFakeContext(1, "/calendar")
	fx.command(t, c, "/calendar")
	require.Len(t, c.sent, 1)
	doc, ok := c.sent[0].(*tele.Document)
	require.True(t, ok)
	assert.Equal(t, calendar.FileName, doc.FileName)
	body, err := io.ReadAll(doc.File.FileReader)
	require.NoError(t, err)
	assert.Contains(t, string(body), "SUMMARY:Rome")
}

func TestNotificationsToggle(t *testing.T) {
	fx := newFixture(t)
	fx.command(t, newFakeContext(1, "/startnotifications"), "/startnotifications")
	rec, err := fx.store.Load(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, rec.Notifications)

	off := newFakeContext(1, "/stopnotifications")
	fx.command(t, off, "/stopnotifications")
	assert.Equal(t, trips.MsgNotifyOff, off.lastText(t))
}

func TestGetID(t *testing.T) {
	fx := newFixture(t)
	c := newFakeContext(42, "/getid")
	fx.command(t, c, "/getid")
	assert.Contains(t, c.lastText(t), "42")
}

func TestOnErrorRepliesGenerically(t *testing.T) {
	c := newFakeContext(1, "Rome")
	OnError(&domain.StoreError{Op: "save", Err: errors.New("disk full")}, c)
	assert.Equal(t, MsgError, c.lastText(t))

	OnError(errors.New("no context"), nil)
}

type fakeMessenger struct {
	to   []tele.Recipient
	what []interface{}
	err  error
}

func (m *fakeMessenger) Send(to tele.Recipient, what interface{}, _ ...interface{}) (*tele.Message, error) {
	m.to = append(m.to, to)
	m.what = append(m.what, what)
	return &tele.Message{}, m.err
}

func TestNotifierSendsToUserChat(t *testing.T) {
	m := &fakeMessenger{}
	n := NewNotifier(m, nil)

	require.NoError(t, n.SendText(context.Background(), 77, "hello"))
	require.Len(t, m.to, 1)
	assert.Equal(t, "77", m.to[0].Recipient())
	assert.Equal(t, "hello", m.what[0])

	m.err = errors.New("blocked by user")
	assert.Error(t, n.SendText(context.Background(), 77, "again"))
}
