package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"secret-santa-wishlist/internal/domain"
	"secret-santa-wishlist/internal/repository"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Button labels double as the transition table: each menu recognizes its
// buttons by exact text match.
const (
	btnMyWishes    = "🎁 Мой список желаний"
	btnOtherWishes = "🎈 Список желаний другого"
	btnAddWish     = "🤩 Добавить желание"
	btnSeeWishes   = "🤔 Посмотреть указанные"
	btnDeleteWish  = "❌ Удалить желание"
	btnBackToMain  = "Назад в главное меню"
)

// pickPrefix + sheet row number is the inline-button payload for choosing a
// recipient. The row is an opaque token, so identities containing any
// particular character cannot break the parse.
const pickPrefix = "pick:"

const (
	msgMainMenu       = "Вы находитесь в главном меню"
	msgAddWishPrompt  = "Напишите свое новое желание"
	msgDeletePrompt   = "Введите номер желания, которое хотите удалить.\n❗️Ваш Санта увидит изменения в списке только тогда, когда запросит его заново."
	msgNotANumber     = "Введите цифру!"
	msgBadPosition    = "Желания под таким номером не существует! Введите корректное число."
	msgPickPerson     = "🕵🏻 Вы еще не указали человека, для которого являетесь Секретным Сантой. Выберите его из списка."
	msgUnknownInput   = "Я вас не понимаю. Воспользуйтесь кнопками меню."
	msgUnknownCommand = "Неизвестная команда. Используйте /start для главного меню."
	msgFailure        = "Что-то пошло не так, попробуйте еще раз."
)

// Sender is the slice of tgbotapi.BotAPI the controller needs; tests swap in
// a recording fake.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type SantaBot struct {
	bot         Sender
	wishlists   *repository.WishlistRepository
	assignments *repository.AssignmentRepository
	sessions    domain.SessionStore
	log         *zap.Logger
}

func NewSantaBot(
	bot Sender,
	wishlists *repository.WishlistRepository,
	assignments *repository.AssignmentRepository,
	sessions domain.SessionStore,
	log *zap.Logger,
) *SantaBot {
	return &SantaBot{
		bot:         bot,
		wishlists:   wishlists,
		assignments: assignments,
		sessions:    sessions,
		log:         log,
	}
}

// HandleUpdate routes one incoming update. A returned error means the update
// failed as a whole; the caller logs it and answers with a generic failure
// reply, so one broken update never takes the process down.
func (s *SantaBot) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.CallbackQuery != nil {
		return s.handleCallback(ctx, update.CallbackQuery)
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		return nil
	}
	if msg.IsCommand() {
		return s.handleCommand(ctx, msg)
	}
	if msg.Text == "" {
		return nil
	}

	state, err := s.sessions.Get(ctx, msg.Chat.ID)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	switch state {
	case domain.StateAddWish:
		return s.handleAddWishInput(ctx, msg)
	case domain.StateDeleteWish:
		return s.handleDeleteWishInput(ctx, msg)
	default:
		return s.handleMenuText(ctx, msg)
	}
}

// ReplyFailure sends the generic failure message for an update whose handler
// returned an error. Best effort: a failed send is only logged.
func (s *SantaBot) ReplyFailure(update tgbotapi.Update) {
	var chatID int64
	switch {
	case update.Message != nil:
		chatID = update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		chatID = update.CallbackQuery.Message.Chat.ID
	default:
		return
	}

	if _, err := s.bot.Send(tgbotapi.NewMessage(chatID, msgFailure)); err != nil {
		s.log.Warn("failed to send failure reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (s *SantaBot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch strings.ToLower(msg.Command()) {
	case "start", "help":
		if err := s.sessions.Clear(ctx, msg.Chat.ID); err != nil {
			return err
		}
		return s.sendMarkdown(msg.Chat.ID, welcomeMessage(msg.From.FirstName), mainMenuKeyboard())
	default:
		return s.send(msg.Chat.ID, msgUnknownCommand, nil)
	}
}

func (s *SantaBot) handleMenuText(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	identity := fullName(msg.From)

	switch msg.Text {
	case btnMyWishes:
		return s.myWishesMenu(ctx, chatID, identity)

	case btnOtherWishes:
		return s.anotherPersonMenu(ctx, chatID, identity)

	case btnAddWish:
		if err := s.sessions.Set(ctx, chatID, domain.StateAddWish); err != nil {
			return err
		}
		return s.send(chatID, msgAddWishPrompt, nil)

	case btnSeeWishes:
		return s.seeWishesMenu(ctx, chatID, identity)

	case btnDeleteWish:
		if err := s.sessions.Set(ctx, chatID, domain.StateDeleteWish); err != nil {
			return err
		}
		return s.send(chatID, msgDeletePrompt, nil)

	case btnBackToMain:
		return s.send(chatID, msgMainMenu, mainMenuKeyboard())

	default:
		return s.send(chatID, msgUnknownInput, mainMenuKeyboard())
	}
}

// handleAddWishInput consumes exactly one text message: the scene is left
// before the wishlist write, so a failing write never traps the user in it.
func (s *SantaBot) handleAddWishInput(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	identity := fullName(msg.From)

	if err := s.sessions.Set(ctx, chatID, domain.StateMenu); err != nil {
		return err
	}
	if err := s.wishlists.Add(ctx, identity, msg.Text); err != nil {
		return err
	}
	return s.myWishesMenu(ctx, chatID, identity)
}

// handleDeleteWishInput stays in the scene on validation errors so the user
// can retry; only a successful delete leaves it.
func (s *SantaBot) handleDeleteWishInput(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	identity := fullName(msg.From)

	position, err := strconv.Atoi(strings.TrimSpace(msg.Text))
	if err != nil {
		return s.send(chatID, msgNotANumber, nil)
	}

	err = s.wishlists.Delete(ctx, identity, position)
	if errors.Is(err, repository.ErrPositionOutOfRange) {
		return s.send(chatID, msgBadPosition, nil)
	}
	if err != nil {
		return err
	}

	if err := s.sessions.Set(ctx, chatID, domain.StateMenu); err != nil {
		return err
	}
	return s.myWishesMenu(ctx, chatID, identity)
}

func (s *SantaBot) myWishesMenu(ctx context.Context, chatID int64, identity string) error {
	items, err := s.wishlists.List(ctx, identity)
	if err != nil {
		return err
	}

	text := fmt.Sprintf("В вашем списке %d %s", len(items), wishWord(len(items)))
	keyboard := oneTimeKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnAddWish)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnSeeWishes)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnBackToMain)),
	)
	return s.send(chatID, text, keyboard)
}

func (s *SantaBot) seeWishesMenu(ctx context.Context, chatID int64, identity string) error {
	items, err := s.wishlists.List(ctx, identity)
	if err != nil {
		return err
	}

	keyboard := oneTimeKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnAddWish)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnDeleteWish)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnBackToMain)),
	)

	text := fmt.Sprintf("*Мои желания:* \n\n%s", numberedList(items))
	if err := s.sendMarkdown(chatID, text, keyboard); err != nil {
		// Wishes are free text and can break Markdown parsing; retry plain.
		s.log.Warn("markdown send failed, retrying as plain text",
			zap.Int64("chat_id", chatID), zap.Error(err))
		plain := fmt.Sprintf("Мои желания:\n\n%s", numberedList(items))
		return s.send(chatID, plain, keyboard)
	}
	return nil
}

// anotherPersonMenu shows the assigned recipient's wishlist, or, before a
// recipient is chosen, the one-time selection list of all participants.
func (s *SantaBot) anotherPersonMenu(ctx context.Context, chatID int64, identity string) error {
	assignee, err := s.assignments.AssigneeFor(ctx, identity)
	if err != nil {
		return err
	}
	if assignee != "" {
		return s.sendAssigneeWishes(ctx, chatID, assignee)
	}

	participants, err := s.assignments.Participants(ctx)
	if err != nil {
		return err
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(participants))
	for _, rec := range participants {
		data := pickPrefix + strconv.Itoa(rec.Row)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(rec.Identity, data),
		))
	}
	return s.send(chatID, msgPickPerson, tgbotapi.NewInlineKeyboardMarkup(rows...))
}

// handleCallback finalizes the one-time recipient choice. The payload row is
// bounds-checked against a fresh fetch before anything is written.
func (s *SantaBot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if _, err := s.bot.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		s.log.Warn("failed to answer callback query", zap.Error(err))
	}

	if query.Message == nil || query.From == nil {
		return nil
	}
	payload, ok := strings.CutPrefix(query.Data, pickPrefix)
	if !ok {
		return nil
	}
	row, err := strconv.Atoi(payload)
	if err != nil {
		return nil
	}

	assignee, err := s.assignments.IdentityAt(ctx, row)
	if err != nil {
		return err
	}

	assigner := fullName(query.From)
	if err := s.assignments.SetAssignment(ctx, assigner, assignee); err != nil {
		return err
	}
	return s.sendAssigneeWishes(ctx, query.Message.Chat.ID, assignee)
}

func (s *SantaBot) sendAssigneeWishes(ctx context.Context, chatID int64, assignee string) error {
	items, err := s.wishlists.List(ctx, assignee)
	if err != nil {
		return err
	}

	text := fmt.Sprintf("Вы Секретный Санта для %s:\n\nСписок желаний:\n%s", assignee, numberedList(items))
	keyboard := oneTimeKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnBackToMain)),
	)
	return s.send(chatID, text, keyboard)
}

func (s *SantaBot) send(chatID int64, text string, keyboard interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if keyboard != nil {
		msg.ReplyMarkup = keyboard
	}
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (s *SantaBot) sendMarkdown(chatID int64, text string, keyboard interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if keyboard != nil {
		msg.ReplyMarkup = keyboard
	}
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func welcomeMessage(firstName string) string {
	return fmt.Sprintf(`Привет, %s!

Учавствуешь в Секретном Санте, но *не знаешь, что подарить*?

Боишься, что не сможешь счастливо улыбнуться, когда увидишь собственный подарок?😥

✨*Выход есть!*✨

Напиши свой *список желаний* и твой Секретный Санта его увидит!😉`, firstName)
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return oneTimeKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnMyWishes)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnOtherWishes)),
	)
}

func oneTimeKeyboard(rows ...[]tgbotapi.KeyboardButton) tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.OneTimeKeyboard = true
	return keyboard
}

func fullName(user *tgbotapi.User) string {
	if user.LastName != "" {
		return user.FirstName + " " + user.LastName
	}
	return user.FirstName
}

// wishWord picks the Russian noun form for the wish count: 1, 2-4, otherwise.
func wishWord(count int) string {
	switch {
	case count == 1:
		return "желание"
	case count > 1 && count < 5:
		return "желания"
	default:
		return "желаний"
	}
}

func numberedList(items []string) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d) %s", i+1, item)
	}
	return b.String()
}
