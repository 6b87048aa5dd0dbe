package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskstack/internal/auth"
	"taskstack/internal/model"
	"taskstack/internal/service"
	"taskstack/internal/todo"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTaskText
	stageDeadlineDate
	stageDeadlineTime
	stageUsername
	stagePassword
)

type authMode int

const (
	modeLogIn authMode = iota
	modeSignUp
)

const (
	cbDeletePrefix = "del:"
	cbUndo         = "undo"
	cbRedo         = "redo"
	cbClear        = "clear"
)

type conversationState struct {
	stage    conversationStage
	text     string
	date     string
	mode     authMode
	username string
}

type confirmationRequest struct {
	index int
	task  model.Task
}

// sender is the part of the Telegram API the bot writes to.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot is the Telegram front end: it turns chat messages into calls on the
// auth and task services and renders the results.
type Bot struct {
	api           *tgbotapi.BotAPI
	out           sender
	authSvc       *service.AuthService
	taskSvc       *service.TaskService
	reminderSvc   *service.ReminderService
	loc           *time.Location
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	mu            sync.Mutex
}

func New(token string, authSvc *service.AuthService, taskSvc *service.TaskService, reminderSvc *service.ReminderService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	b := newBot(api, authSvc, taskSvc, reminderSvc)
	b.api = api
	return b, nil
}

func newBot(out sender, authSvc *service.AuthService, taskSvc *service.TaskService, reminderSvc *service.ReminderService) *Bot {
	return &Bot{
		out:           out,
		authSvc:       authSvc,
		taskSvc:       taskSvc,
		reminderSvc:   reminderSvc,
		loc:           time.Local,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.handleUpdate(ctx, update)
	}

	return ctx.Err()
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			log.Printf("handle callback: %v", err)
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			log.Printf("handle message: %v", err)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	chatID := msg.Chat.ID

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(chatID)
		b.clearConfirmation(chatID)
		return b.sendText(chatID, "⏪ Input cancelled.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		log.Printf("[info] command from chat=%d: /%s", chatID, msg.Command())
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(chatID); ok {
		return b.handleConfirmationResponse(msg, pending)
	}

	if b.hasConversation(chatID) {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(chatID, "I didn't get that. Use /add to add a task or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	// A new command abandons any half-finished dialog.
	b.clearConversation(chatID)
	b.clearConfirmation(chatID)

	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(chatID)
	case "signup":
		return b.handleCredentials(ctx, msg, modeSignUp)
	case "login":
		return b.handleCredentials(ctx, msg, modeLogIn)
	case "logout":
		b.authSvc.LogOut(chatID)
		log.Printf("[info] logout chat=%d", chatID)
		return b.sendText(chatID, "👋 Logged out.")
	case "whoami":
		return b.handleWhoAmI(chatID)
	case "add":
		return b.handleAdd(msg)
	case "newtask":
		return b.startNewTaskConversation(chatID)
	case "tasks":
		return b.sendTaskList(chatID)
	case "rm":
		return b.handleRemove(msg)
	case "clear":
		return b.handleMutation(chatID, b.taskSvc.Clear, "The list is already empty.")
	case "undo":
		return b.handleMutation(chatID, b.taskSvc.Undo, "Nothing to undo.")
	case "redo":
		return b.handleMutation(chatID, b.taskSvc.Redo, "Nothing to redo.")
	case "cancel":
		return b.sendText(chatID, "⏪ Input cancelled.")
	default:
		return b.sendText(chatID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf("👋 Hi, %s!\n<b>I keep a to-do list with undo and redo.</b>\n\n", escape(name))
	if user, ok := b.authSvc.CurrentUser(msg.Chat.ID); ok {
		text += fmt.Sprintf("You are logged in as <b>%s</b>. Send /tasks to see your list.", escape(user))
	} else {
		text += "Sign up with /signup, then log in with /login. Accounts live only as long as this chat session."
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(chatID int64) error {
	text := "ℹ️ <b>Commands</b>\n" +
		"• /signup &lt;user&gt; &lt;password&gt; — create an account\n" +
		"• /login &lt;user&gt; &lt;password&gt; — log in\n" +
		"• /logout — log out\n" +
		"• /whoami — show who is logged in\n" +
		"• /add &lt;text&gt; [@ YYYY-MM-DD [HH:MM]] — add a task\n" +
		"• /newtask — add a task step by step\n" +
		"• /tasks — show the list\n" +
		"• /rm &lt;n&gt; — delete task number n\n" +
		"• /clear — delete all tasks\n" +
		"• /undo, /redo — step through changes\n" +
		"• /cancel — cancel the current input"
	return b.sendText(chatID, text)
}

func (b *Bot) handleWhoAmI(chatID int64) error {
	user, ok := b.authSvc.CurrentUser(chatID)
	if !ok {
		return b.sendText(chatID, "Nobody is logged in.")
	}
	return b.sendText(chatID, fmt.Sprintf("Logged in as <b>%s</b>.", escape(user)))
}

func (b *Bot) handleCredentials(ctx context.Context, msg *tgbotapi.Message, mode authMode) error {
	chatID := msg.Chat.ID
	args := strings.Fields(msg.CommandArguments())
	switch len(args) {
	case 0:
		b.setConversation(chatID, &conversationState{stage: stageUsername, mode: mode})
		return b.sendWithReplyMarkup(chatID, "👤 Username?", cancelKeyboard())
	case 2:
		// The message carries a password; drop it from the chat history.
		b.deleteMessage(chatID, msg.MessageID)
		return b.finishCredentials(ctx, chatID, mode, args[0], args[1])
	default:
		if mode == modeSignUp {
			return b.sendText(chatID, "Usage: /signup &lt;user&gt; &lt;password&gt;")
		}
		return b.sendText(chatID, "Usage: /login &lt;user&gt; &lt;password&gt;")
	}
}

func (b *Bot) finishCredentials(ctx context.Context, chatID int64, mode authMode, username, password string) error {
	if mode == modeSignUp {
		if err := b.authSvc.SignUp(ctx, chatID, username, password); err != nil {
			return b.sendTextWithRemove(chatID, authErrorText(err))
		}
		log.Printf("[info] signup chat=%d user=%s", chatID, strings.TrimSpace(username))
		return b.sendTextWithRemove(chatID, "✅ Sign up successful. You can now /login.")
	}

	if err := b.authSvc.LogIn(ctx, chatID, username, password); err != nil {
		return b.sendTextWithRemove(chatID, authErrorText(err))
	}
	user, _ := b.authSvc.CurrentUser(chatID)
	log.Printf("[info] login chat=%d user=%s", chatID, user)
	if err := b.sendTextWithRemove(chatID, fmt.Sprintf("✅ Logged in as <b>%s</b>.", escape(user))); err != nil {
		return err
	}
	return b.sendTaskList(chatID)
}

func (b *Bot) handleAdd(msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	text, deadline := splitDeadline(msg.CommandArguments(), b.loc)
	if strings.TrimSpace(text) == "" {
		return b.sendText(chatID, "Usage: /add &lt;text&gt; [@ YYYY-MM-DD [HH:MM]]")
	}
	return b.addTask(chatID, text, deadline)
}

func (b *Bot) addTask(chatID int64, text string, deadline *time.Time) error {
	view, changed, err := b.taskSvc.Add(chatID, text, deadline)
	if err != nil {
		return b.sendTaskError(chatID, err)
	}
	if !changed {
		return b.sendText(chatID, "Task text is required.")
	}
	log.Printf("[info] task added chat=%d count=%d", chatID, len(view.Tasks))
	return b.sendView(chatID, "✅ Task added.", view)
}

func (b *Bot) handleRemove(msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())
	num, err := strconv.Atoi(args)
	if err != nil {
		return b.sendText(chatID, "Give the task number: /rm 2")
	}
	view, changed, err := b.taskSvc.Remove(chatID, num-1)
	if err != nil {
		return b.sendTaskError(chatID, err)
	}
	if !changed {
		return b.sendText(chatID, fmt.Sprintf("There is no task #%d.", num))
	}
	return b.sendView(chatID, "🗑 Task deleted.", view)
}

func (b *Bot) handleMutation(chatID int64, op func(int64) (service.TaskView, bool, error), noop string) error {
	view, changed, err := op(chatID)
	if err != nil {
		return b.sendTaskError(chatID, err)
	}
	if !changed {
		return b.sendView(chatID, noop, view)
	}
	return b.sendView(chatID, "", view)
}

func (b *Bot) startNewTaskConversation(chatID int64) error {
	if _, ok := b.authSvc.CurrentUser(chatID); !ok {
		return b.sendTaskError(chatID, service.ErrNotLoggedIn)
	}
	log.Printf("[info] start new task conversation chat=%d", chatID)
	b.setConversation(chatID, &conversationState{stage: stageTaskText})
	return b.sendWithReplyMarkup(chatID, "🆕 New task.\n<b>Step 1:</b> what needs doing?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	state := b.getConversation(chatID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTaskText:
		if text == "" {
			return b.sendWithReplyMarkup(chatID, "Task text is required.", cancelKeyboard())
		}
		state.text = text
		state.stage = stageDeadlineDate
		return b.sendWithReplyMarkup(chatID, "⏰ Deadline date as <code>2025-11-30</code> (or «Skip»).", skipKeyboard())
	case stageDeadlineDate:
		if isSkipInput(text) {
			b.clearConversation(chatID)
			return b.addTask(chatID, state.text, nil)
		}
		if _, err := todo.ParseDeadline(text, "", b.loc); err != nil {
			return b.sendWithReplyMarkup(chatID, "Can't read that date. Use <code>2025-11-30</code> or «Skip».", skipKeyboard())
		}
		state.date = text
		state.stage = stageDeadlineTime
		return b.sendWithReplyMarkup(chatID, "🕘 Time as <code>18:30</code> (or «Skip» for midnight).", skipKeyboard())
	case stageDeadlineTime:
		clock := text
		if isSkipInput(text) {
			clock = ""
		}
		deadline, err := todo.ParseDeadline(state.date, clock, b.loc)
		if err != nil {
			return b.sendWithReplyMarkup(chatID, "Can't read that time. Use <code>18:30</code> or «Skip».", skipKeyboard())
		}
		b.clearConversation(chatID)
		return b.addTask(chatID, state.text, &deadline)
	case stageUsername:
		if text == "" {
			return b.sendWithReplyMarkup(chatID, "👤 Username?", cancelKeyboard())
		}
		state.username = text
		state.stage = stagePassword
		return b.sendWithReplyMarkup(chatID, "🔑 Password?", cancelKeyboard())
	case stagePassword:
		b.clearConversation(chatID)
		b.deleteMessage(chatID, msg.MessageID)
		// Passwords are used exactly as typed.
		return b.finishCredentials(ctx, chatID, state.mode, state.username, msg.Text)
	default:
		b.clearConversation(chatID)
		return b.sendText(chatID, "Dialog reset. Try again.")
	}
}

func (b *Bot) handleConfirmationResponse(msg *tgbotapi.Message, req confirmationRequest) error {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(chatID)
		return b.deleteTaskAndRefresh(chatID, req)
	case isCancelInput(text):
		b.clearConfirmation(chatID)
		return b.sendText(chatID, "Deletion cancelled.")
	default:
		return b.sendWithReplyMarkup(chatID, "Confirm or cancel the deletion.", confirmKeyboard())
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	if _, err := b.out.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("callback ack: %v", err)
	}

	chatID := cb.Message.Chat.ID
	data := cb.Data
	log.Printf("[info] callback chat=%d data=%s", chatID, data)

	switch {
	case strings.HasPrefix(data, cbDeletePrefix):
		index, err := strconv.Atoi(strings.TrimPrefix(data, cbDeletePrefix))
		if err != nil {
			return nil
		}
		return b.askDeleteConfirmation(chatID, index)
	case data == cbUndo:
		return b.handleMutation(chatID, b.taskSvc.Undo, "Nothing to undo.")
	case data == cbRedo:
		return b.handleMutation(chatID, b.taskSvc.Redo, "Nothing to redo.")
	case data == cbClear:
		return b.handleMutation(chatID, b.taskSvc.Clear, "The list is already empty.")
	default:
		return nil
	}
}

func (b *Bot) askDeleteConfirmation(chatID int64, index int) error {
	task, ok, err := b.taskSvc.Task(chatID, index)
	if err != nil {
		return b.sendTaskError(chatID, err)
	}
	if !ok {
		return b.sendText(chatID, "That task is gone. Send /tasks for the current list.")
	}
	b.setConfirmation(chatID, confirmationRequest{index: index, task: task})
	text := fmt.Sprintf("Delete task #%d «%s» (%s)?", index+1, escape(task.Text), todo.FormatDeadline(task.Deadline))
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) deleteTaskAndRefresh(chatID int64, req confirmationRequest) error {
	view, changed, err := b.taskSvc.RemoveIfMatches(chatID, req.index, req.task)
	switch {
	case errors.Is(err, service.ErrStaleIndex):
		if err := b.sendTextWithRemove(chatID, "The list changed since it was shown. Here is the current one."); err != nil {
			return err
		}
		return b.sendView(chatID, "", view)
	case err != nil:
		return b.sendTaskError(chatID, err)
	case !changed:
		return b.sendTextWithRemove(chatID, "Nothing was deleted.")
	}
	log.Printf("[info] task deleted chat=%d index=%d", chatID, req.index)
	if err := b.sendTextWithRemove(chatID, fmt.Sprintf("🗑 Task «%s» deleted.", escape(req.task.Text))); err != nil {
		return err
	}
	return b.sendView(chatID, "", view)
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNewTask):
		return true, b.startNewTaskConversation(chatID)
	case strings.ToLower(menuLabelTasks):
		return true, b.sendTaskList(chatID)
	case strings.ToLower(menuLabelUndo):
		return true, b.handleMutation(chatID, b.taskSvc.Undo, "Nothing to undo.")
	case strings.ToLower(menuLabelRedo):
		return true, b.handleMutation(chatID, b.taskSvc.Redo, "Nothing to redo.")
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(chatID)
	default:
		return false, nil
	}
}

// SendReminders delivers deadline reminders to every logged-in chat.
func (b *Bot) SendReminders(ctx context.Context, now time.Time) error {
	return b.deliver(ctx, b.reminderSvc.DueReminders(now))
}

// SendDailyDigests delivers the full list to every logged-in chat that has tasks.
func (b *Bot) SendDailyDigests(ctx context.Context, now time.Time) error {
	return b.deliver(ctx, b.reminderSvc.DailyDigests(now))
}

func (b *Bot) deliver(ctx context.Context, reminders []service.Reminder) error {
	for _, r := range reminders {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := b.sendText(r.ChatID, r.Text); err != nil {
			log.Printf("send reminder to %d: %v", r.ChatID, err)
		}
	}
	return nil
}

func (b *Bot) sendTaskList(chatID int64) error {
	view, err := b.taskSvc.List(chatID)
	if err != nil {
		return b.sendTaskError(chatID, err)
	}
	return b.sendView(chatID, "", view)
}

// sendView renders the list with one delete button per task and the history controls.
func (b *Bot) sendView(chatID int64, notice string, view service.TaskView) error {
	now := time.Now().In(b.loc)

	var builder strings.Builder
	if notice != "" {
		builder.WriteString(notice + "\n\n")
	}
	builder.WriteString(fmt.Sprintf("📝 <b>To-Do List — %s</b>\n", escape(view.User)))
	if len(view.Tasks) == 0 {
		builder.WriteString("No tasks. Add one with /add or /newtask.\n")
	}
	for i, task := range view.Tasks {
		builder.WriteString(service.FormatTask(i+1, task, now))
	}
	builder.WriteString(fmt.Sprintf("\nUndo available: %t · Redo available: %t", view.CanUndo, view.CanRedo))

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = listKeyboard(view)
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) sendTaskError(chatID int64, err error) error {
	if errors.Is(err, service.ErrNotLoggedIn) {
		return b.sendText(chatID, "🔒 Please /login first (or /signup to create an account).")
	}
	return b.sendText(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) sendTextWithRemove(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if _, err := b.out.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		log.Printf("delete credentials message: %v", err)
	}
}

func (b *Bot) getConfirmation(chatID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[chatID]
	return req, ok
}

func (b *Bot) setConfirmation(chatID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[chatID] = req
}

func (b *Bot) clearConfirmation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, chatID)
}

func (b *Bot) setConversation(chatID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[chatID] = state
}

func (b *Bot) getConversation(chatID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[chatID]
}

func (b *Bot) hasConversation(chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[chatID]
	return ok
}

func (b *Bot) clearConversation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, chatID)
}

// splitDeadline separates "text @ YYYY-MM-DD [HH:MM]". If the part after the
// last @ is not a valid deadline, the whole input is the task text.
func splitDeadline(args string, loc *time.Location) (string, *time.Time) {
	idx := strings.LastIndex(args, "@")
	if idx < 0 {
		return strings.TrimSpace(args), nil
	}
	deadline, err := todo.ParseDeadlineArg(args[idx+1:], loc)
	if err != nil {
		return strings.TrimSpace(args), nil
	}
	return strings.TrimSpace(args[:idx]), &deadline
}

func authErrorText(err error) string {
	switch {
	case errors.Is(err, auth.ErrValidation):
		return "Enter both username and password."
	case errors.Is(err, auth.ErrDuplicateUser):
		return "Username already exists. Choose another."
	case errors.Is(err, auth.ErrUnknownUser):
		return "No such user. Please /signup first."
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Incorrect password."
	default:
		log.Printf("auth: %v", err)
		return "Something went wrong. Please try again later."
	}
}

func escape(s string) string {
	return html.EscapeString(s)
}
