package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"secret-santa-wishlist/internal/codec"
	"secret-santa-wishlist/internal/domain"
	"secret-santa-wishlist/internal/repository"
	"secret-santa-wishlist/internal/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSender struct {
	sent         []tgbotapi.MessageConfig
	failMarkdown bool
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, nil
	}
	if f.failMarkdown && msg.ParseMode == tgbotapi.ModeMarkdown {
		return tgbotapi.Message{}, errors.New("can't parse entities")
	}
	f.sent = append(f.sent, msg)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	require.NotEmpty(t, f.sent, "no message was sent")
	return f.sent[len(f.sent)-1]
}

type fakeStore struct {
	records []domain.Record
}

func (f *fakeStore) FetchAll(context.Context) ([]domain.Record, error) {
	out := make([]domain.Record, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeStore) Save(_ context.Context, rec domain.Record) error {
	for i := range f.records {
		if f.records[i].Row == rec.Row {
			f.records[i] = rec
			return nil
		}
	}
	return fmt.Errorf("unknown row %d", rec.Row)
}

func newTestBot(records ...domain.Record) (*SantaBot, *fakeSender, *fakeStore, *session.MemoryStore) {
	store := &fakeStore{records: records}
	sender := &fakeSender{}
	sessions := session.NewMemoryStore()
	bot := NewSantaBot(
		sender,
		repository.NewWishlistRepository(store),
		repository.NewAssignmentRepository(store),
		sessions,
		zap.NewNop(),
	)
	return bot, sender, store, sessions
}

func alice() *tgbotapi.User {
	return &tgbotapi.User{ID: 100, FirstName: "Alice", LastName: "Smith"}
}

func textUpdate(user *tgbotapi.User, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: text,
		From: user,
		Chat: &tgbotapi.Chat{ID: user.ID},
	}}
}

func commandUpdate(user *tgbotapi.User, command string) tgbotapi.Update {
	update := textUpdate(user, command)
	update.Message.Entities = []tgbotapi.MessageEntity{
		{Type: "bot_command", Offset: 0, Length: len(command)},
	}
	return update
}

func callbackUpdate(user *tgbotapi.User, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    user,
		Data:    data,
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: user.ID}},
	}}
}

func sessionState(t *testing.T, sessions *session.MemoryStore, chatID int64) domain.State {
	t.Helper()
	state, err := sessions.Get(context.Background(), chatID)
	require.NoError(t, err)
	return state
}

func TestStartShowsWelcomeAndMainMenu(t *testing.T) {
	bot, sender, _, sessions := newTestBot(domain.Record{Row: 2, Identity: "Alice Smith"})
	require.NoError(t, sessions.Set(context.Background(), 100, domain.StateDeleteWish))

	require.NoError(t, bot.HandleUpdate(context.Background(), commandUpdate(alice(), "/start")))

	msg := sender.last(t)
	assert.Contains(t, msg.Text, "Привет, Alice!")
	assert.Equal(t, tgbotapi.ModeMarkdown, msg.ParseMode)

	keyboard, ok := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, btnMyWishes, keyboard.Keyboard[0][0].Text)
	assert.Equal(t, btnOtherWishes, keyboard.Keyboard[1][0].Text)

	// /start drops any scene the chat was stuck in.
	assert.Equal(t, domain.StateMenu, sessionState(t, sessions, 100))
}

func TestMyWishesMenuPluralizesCount(t *testing.T) {
	bot, sender, _, _ := newTestBot(domain.Record{
		Row:      2,
		Identity: "Alice Smith",
		Gifts:    codec.JoinList([]string{"A", "B", "C"}),
	})

	require.NoError(t, bot.HandleUpdate(context.Background(), textUpdate(alice(), btnMyWishes)))
	assert.Equal(t, "В вашем списке 3 желания", sender.last(t).Text)
}

func TestAddWishFlow(t *testing.T) {
	bot, sender, store, sessions := newTestBot(domain.Record{Row: 2, Identity: "Alice Smith"})
	ctx := context.Background()

	require.NoError(t, bot.HandleUpdate(ctx, textUpdate(alice(), btnAddWish)))
	assert.Equal(t, msgAddWishPrompt, sender.last(t).Text)
	assert.Equal(t, domain.StateAddWish, sessionState(t, sessions, 100))

	require.NoError(t, bot.HandleUpdate(ctx, textUpdate(alice(), "chocolate")))
	assert.Equal(t, domain.StateMenu, sessionState(t, sessions, 100))
	assert.Equal(t, codec.JoinList([]string{"chocolate"}), store.records[0].Gifts)
	assert.Equal(t, "В вашем списке 1 желание", sender.last(t).Text)
}

func TestDeleteWishSceneValidatesAndRetries(t *testing.T) {
	bot, sender, store, sessions := newTestBot(domain.Record{
		Row:      2,
		Identity: "Alice Smith",
		Gifts:    codec.JoinList([]string{"A", "B"}),
	})
	ctx := context.Background()

	require.NoError(t, bot.HandleUpdate(ctx, textUpdate(alice(), btnDeleteWish)))
	assert.Equal(t, msgDeletePrompt, sender.last(t).Text)

	require.NoError(t, bot.HandleUpdate(ctx, textUpdate(alice(), "abc")))
	assert.Equal(t, msgNotANumber, sender.last(t).Text)
	assert.Equal(t, domain.StateDeleteWish, sessionState(t, sessions, 100))

	require.NoError(t, bot.HandleUpdate(ctx, textUpdate(alice(), "5")))
	assert.Equal(t, msgBadPosition, sender.last(t).Text)
	assert.Equal(t, domain.StateDeleteWish, sessionState(t, sessions, 100))
	assert.Equal(t, codec.JoinList([]string{"A", "B"}), store.records[0].Gifts)

	require.NoError(t, bot.HandleUpdate(ctx, textUpdate(alice(), "1")))
	assert.Equal(t, domain.StateMenu, sessionState(t, sessions, 100))
	assert.Equal(t, codec.JoinList([]string{"B"}), store.records[0].Gifts)
	assert.Equal(t, "В вашем списке 1 желание", sender.last(t).Text)
}

func TestSeeWishesRendersNumberedList(t *testing.T) {
	bot, sender, _, _ := newTestBot(domain.Record{
		Row:      2,
		Identity: "Alice Smith",
		Gifts:    codec.JoinList([]string{"книга", "носки"}),
	})

	require.NoError(t, bot.HandleUpdate(context.Background(), textUpdate(alice(), btnSeeWishes)))

	msg := sender.last(t)
	assert.Contains(t, msg.Text, "1) книга\n2) носки")
	assert.Equal(t, tgbotapi.ModeMarkdown, msg.ParseMode)
}

func TestSeeWishesFallsBackToPlainText(t *testing.T) {
	bot, sender, _, _ := newTestBot(domain.Record{
		Row:      2,
		Identity: "Alice Smith",
		Gifts:    codec.JoinList([]string{"wish *with broken markdown"}),
	})
	sender.failMarkdown = true

	require.NoError(t, bot.HandleUpdate(context.Background(), textUpdate(alice(), btnSeeWishes)))

	msg := sender.last(t)
	assert.Empty(t, msg.ParseMode)
	assert.Contains(t, msg.Text, "1) wish *with broken markdown")
}

func TestAnotherPersonWithoutAssignmentShowsPicker(t *testing.T) {
	bot, sender, _, _ := newTestBot(
		domain.Record{Row: 2, Identity: "Alice Smith"},
		domain.Record{Row: 3, Identity: "Bob Jones"},
	)

	require.NoError(t, bot.HandleUpdate(context.Background(), textUpdate(alice(), btnOtherWishes)))

	msg := sender.last(t)
	assert.Equal(t, msgPickPerson, msg.Text)

	keyboard, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, keyboard.InlineKeyboard, 2)

	first := keyboard.InlineKeyboard[0][0]
	second := keyboard.InlineKeyboard[1][0]
	assert.Equal(t, "Alice Smith", first.Text)
	assert.Equal(t, "pick:2", *first.CallbackData)
	assert.Equal(t, "Bob Jones", second.Text)
	assert.Equal(t, "pick:3", *second.CallbackData)
}

func TestPickCallbackStoresAssignmentAndShowsWishlist(t *testing.T) {
	bot, sender, store, _ := newTestBot(
		domain.Record{Row: 2, Identity: "Alice Smith"},
		domain.Record{Row: 3, Identity: "Bob Jones", Gifts: codec.JoinList([]string{"Socks"})},
	)

	require.NoError(t, bot.HandleUpdate(context.Background(), callbackUpdate(alice(), "pick:3")))

	assert.Equal(t, codec.Encode("Bob Jones"), store.records[0].SecretSantaFor)

	msg := sender.last(t)
	assert.Contains(t, msg.Text, "Вы Секретный Санта для Bob Jones")
	assert.Contains(t, msg.Text, "1) Socks")
}

func TestPickCallbackUnknownRow(t *testing.T) {
	bot, _, store, _ := newTestBot(domain.Record{Row: 2, Identity: "Alice Smith"})

	err := bot.HandleUpdate(context.Background(), callbackUpdate(alice(), "pick:99"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, store.records[0].SecretSantaFor)
}

func TestForeignCallbackIsIgnored(t *testing.T) {
	bot, sender, _, _ := newTestBot(domain.Record{Row: 2, Identity: "Alice Smith"})

	require.NoError(t, bot.HandleUpdate(context.Background(), callbackUpdate(alice(), "something-else")))
	assert.Empty(t, sender.sent)
}

func TestAssignedUserSeesAssigneeWishlist(t *testing.T) {
	bot, sender, _, _ := newTestBot(
		domain.Record{Row: 2, Identity: "Alice Smith", SecretSantaFor: codec.Encode("Bob Jones")},
		domain.Record{Row: 3, Identity: "Bob Jones", Gifts: codec.JoinList([]string{"Socks", "Tea"})},
	)

	require.NoError(t, bot.HandleUpdate(context.Background(), textUpdate(alice(), btnOtherWishes)))

	msg := sender.last(t)
	assert.Contains(t, msg.Text, "Вы Секретный Санта для Bob Jones")
	assert.Contains(t, msg.Text, "1) Socks\n2) Tea")
}

func TestAssigneeWithEmptyWishlistRendersEmptyListing(t *testing.T) {
	bot, sender, _, _ := newTestBot(
		domain.Record{Row: 2, Identity: "Alice Smith", SecretSantaFor: codec.Encode("Bob Jones")},
		domain.Record{Row: 3, Identity: "Bob Jones"},
	)

	require.NoError(t, bot.HandleUpdate(context.Background(), textUpdate(alice(), btnOtherWishes)))

	msg := sender.last(t)
	assert.Contains(t, msg.Text, "Вы Секретный Санта для Bob Jones")
	assert.Contains(t, msg.Text, "Список желаний:\n")
}

func TestUnknownMenuTextGetsFallback(t *testing.T) {
	bot, sender, _, _ := newTestBot(domain.Record{Row: 2, Identity: "Alice Smith"})

	require.NoError(t, bot.HandleUpdate(context.Background(), textUpdate(alice(), "how does this work?")))

	msg := sender.last(t)
	assert.Equal(t, msgUnknownInput, msg.Text)
	_, ok := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	assert.True(t, ok)
}

func TestUnknownCommandReply(t *testing.T) {
	bot, sender, _, _ := newTestBot(domain.Record{Row: 2, Identity: "Alice Smith"})

	require.NoError(t, bot.HandleUpdate(context.Background(), commandUpdate(alice(), "/frobnicate")))
	assert.Equal(t, msgUnknownCommand, sender.last(t).Text)
}

func TestBackToMainMenu(t *testing.T) {
	bot, sender, _, _ := newTestBot(domain.Record{Row: 2, Identity: "Alice Smith"})

	require.NoError(t, bot.HandleUpdate(context.Background(), textUpdate(alice(), btnBackToMain)))
	assert.Equal(t, msgMainMenu, sender.last(t).Text)
}

func TestWishWordBuckets(t *testing.T) {
	cases := map[int]string{
		0:  "желаний",
		1:  "желание",
		2:  "желания",
		3:  "желания",
		4:  "желания",
		5:  "желаний",
		11: "желаний",
	}
	for count, want := range cases {
		assert.Equal(t, want, wishWord(count), "count %d", count)
	}
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "Alice Smith", fullName(&tgbotapi.User{FirstName: "Alice", LastName: "Smith"}))
	assert.Equal(t, "Alice", fullName(&tgbotapi.User{FirstName: "Alice"}))
}

func TestNumberedList(t *testing.T) {
	assert.Equal(t, "", numberedList(nil))
	assert.Equal(t, "1) A", numberedList([]string{"A"}))
	assert.Equal(t, "1) A\n2) B", numberedList([]string{"A", "B"}))
}
