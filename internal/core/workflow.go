package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/daslui/telegram-music-bot/internal/chat"
	"github.com/daslui/telegram-music-bot/internal/i18n"
	"github.com/daslui/telegram-music-bot/pkg/tracklink"
)

// Workflow drives the request lifecycle: inbound message → rate gate → link
// parse → lookup → vote message, and vote callback → exactly-once resolution
// → queue append. Handlers are safe to interleave; the ledger serializes
// per-request resolution and everything else is either immutable or guarded
// by its own lock.
type Workflow struct {
	config     *Config
	frontend   chat.Frontend
	music      MusicService
	authorizer Authorizer
	limiter    RateLimiter
	dedup      DedupStore
	ledger     *Ledger
	localizer  *i18n.Localizer
	metrics    MetricsRecorder
	logger     *zap.Logger

	loginMu       sync.Mutex
	pendingLogins map[string]struct{}
}

func NewWorkflow(
	config *Config,
	frontend chat.Frontend,
	music MusicService,
	authorizer Authorizer,
	limiter RateLimiter,
	dedup DedupStore,
	metrics MetricsRecorder,
	logger *zap.Logger,
) *Workflow {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Workflow{
		config:        config,
		frontend:      frontend,
		music:         music,
		authorizer:    authorizer,
		limiter:       limiter,
		dedup:         dedup,
		ledger:        NewLedger(),
		localizer:     i18n.NewLocalizer(config.App.Language),
		metrics:       metrics,
		logger:        logger,
		pendingLogins: make(map[string]struct{}),
	}
}

// Ledger exposes the vote ledger for gauges and tests.
func (w *Workflow) Ledger() *Ledger {
	return w.ledger
}

// HandleMessage processes one inbound chat message. It never returns an
// error: every failure is converted to a chat reply here so one user's
// failure cannot affect other in-flight requests.
func (w *Workflow) HandleMessage(ctx context.Context, msg *chat.Message) {
	ctx, cancel := context.WithTimeout(ctx, w.config.App.RequestTimeout)
	defer cancel()

	text := strings.TrimSpace(msg.Text)
	switch command(text) {
	case "/help":
		w.reply(ctx, msg, w.localizer.T("help"))
		return
	case "/id":
		w.reply(ctx, msg, chatIDText(w.localizer, msg.ChatID, msg.ThreadID))
		return
	case "/login":
		w.beginLogin(ctx, msg)
		return
	}

	if w.takePendingLogin(msg.SenderID) {
		w.completeLogin(ctx, msg)
		return
	}

	// Messages originating in the voting chat are never treated as requests,
	// otherwise the bot's own vote messages would loop back in.
	if msg.ChatID == w.config.Telegram.VotingChatID {
		return
	}

	// Track requests come through direct chats only. Group chatter is
	// ignored outright, not answered with format help.
	if !msg.IsPrivate {
		return
	}

	w.handleRequest(ctx, msg)
}

func command(text string) string {
	cmd, _, _ := strings.Cut(text, " ")
	if !strings.HasPrefix(cmd, "/") {
		return ""
	}
	// Commands in groups arrive as /cmd@botname.
	cmd, _, _ = strings.Cut(cmd, "@")
	return cmd
}

// handleRequest is the workflow boundary for track requests: processRequest
// reports failures as classified errors, and every user-triggered one is
// converted to a chat reply here.
func (w *Workflow) handleRequest(ctx context.Context, msg *chat.Message) {
	err := w.processRequest(ctx, msg)
	if err == nil {
		w.metrics.RequestHandled("accepted")
		return
	}

	switch {
	case errors.Is(err, ErrRateLimited):
		w.metrics.RequestHandled("rate_limited")
		w.reply(ctx, msg, rateLimitedText(w.localizer, w.config.RateLimit.Limit, w.config.RateLimit.Window))
	case errors.Is(err, ErrInvalidLink):
		w.metrics.RequestHandled("invalid_link")
		w.reply(ctx, msg, w.localizer.T("request.help"))
	case errors.Is(err, ErrDuplicateTrack):
		w.metrics.RequestHandled("duplicate")
		w.reply(ctx, msg, w.localizer.T("request.duplicate"))
	case errors.Is(err, ErrTrackNotFound):
		w.metrics.RequestHandled("not_found")
		w.reply(ctx, msg, w.localizer.T("request.not_found"))
	default:
		w.metrics.RequestHandled("failed")
		w.logger.Error("Request failed", zap.Error(err))
		w.reply(ctx, msg, w.localizer.T("request.failed"))
	}
}

func (w *Workflow) processRequest(ctx context.Context, msg *chat.Message) error {
	if !w.limiter.Allow(msg.SenderID) {
		w.logger.Debug("Request rate limited", zap.String("userID", msg.SenderID))
		return ErrRateLimited
	}

	uri, ok := w.parseLink(ctx, msg.Text)
	if !ok {
		return ErrInvalidLink
	}
	trackID, _ := tracklink.TrackID(uri)

	if w.dedup.Has(trackID) {
		return fmt.Errorf("%w: %s", ErrDuplicateTrack, trackID)
	}

	track, err := w.music.GetTrack(ctx, trackID)
	if err != nil {
		if errors.Is(err, ErrTrackNotFound) {
			return err
		}
		w.logger.Warn("Track lookup failed",
			zap.String("trackID", trackID),
			zap.Error(err))
		return fmt.Errorf("%w: lookup: %s", ErrTrackNotFound, trackID)
	}

	requester := chat.DisplayName(msg.SenderFirst, msg.SenderUser)
	buttons := []chat.Button{
		{Label: w.localizer.T("vote.button_approve"), Token: tracklink.ApproveToken(uri)},
		{Label: w.localizer.T("vote.button_decline"), Token: tracklink.DeclineToken},
	}

	voteMsgID, err := w.frontend.SendButtons(ctx,
		w.config.Telegram.VotingChatID,
		w.config.Telegram.VotingThreadID,
		voteMessageText(w.localizer, requester, track),
		buttons)
	if err != nil {
		return fmt.Errorf("post vote message for %s: %w", trackID, err)
	}

	w.ledger.Post(voteMsgID, TrackRequest{
		URI:           uri,
		TrackID:       trackID,
		Track:         *track,
		RequesterID:   msg.SenderID,
		RequesterName: requester,
		SubmittedAt:   time.Now(),
	})
	w.metrics.SetPendingRequests(w.ledger.Pending())

	w.logger.Info("Track request posted for vote",
		zap.String("trackID", trackID),
		zap.String("requester", requester),
		zap.String("voteMessageID", voteMsgID))

	w.reply(ctx, msg, ackText(w.localizer, track))
	return nil
}

// parseLink extracts a canonical track URI from the message, resolving
// spotify.link short URLs first when needed.
func (w *Workflow) parseLink(ctx context.Context, text string) (string, bool) {
	if uri, ok := tracklink.Parse(text); ok {
		return uri, true
	}

	short, ok := tracklink.ShortLink(text)
	if !ok {
		return "", false
	}
	resolved, err := w.music.ResolveShortLink(ctx, short)
	if err != nil {
		w.logger.Debug("Short link resolution failed",
			zap.String("url", short),
			zap.Error(err))
		return "", false
	}
	return tracklink.Parse(resolved)
}

// HandleVote processes one button tap on a vote message. Duplicate taps and
// concurrent moderators race through Ledger.Claim; exactly one wins and
// performs the queue append, everyone else gets a no-op answer.
func (w *Workflow) HandleVote(ctx context.Context, vote *chat.Vote) {
	ctx, cancel := context.WithTimeout(ctx, w.config.App.RequestTimeout)
	defer cancel()

	if vote.ChatID != w.config.Telegram.VotingChatID {
		return
	}

	approveURI, isApprove := tracklink.ParseApproveToken(vote.Token)
	if !isApprove && vote.Token != tracklink.DeclineToken {
		w.answer(ctx, vote, w.localizer.T("callback.unknown"))
		return
	}

	req, err := w.ledger.Claim(vote.MessageID)
	switch {
	case errors.Is(err, ErrAlreadyResolved):
		w.metrics.VoteHandled("duplicate_vote")
		w.answer(ctx, vote, w.localizer.T("callback.already_decided"))
		return
	case errors.Is(err, ErrUnknownRequest):
		w.answer(ctx, vote, w.localizer.T("callback.unknown"))
		return
	}

	voter := chat.DisplayName(vote.VoterFirst, vote.VoterUser)

	if !isApprove {
		w.resolveDecline(ctx, vote, &req, voter)
		return
	}
	w.resolveApprove(ctx, vote, &req, approveURI, voter)
}

func (w *Workflow) resolveDecline(ctx context.Context, vote *chat.Vote, req *TrackRequest, voter string) {
	w.ledger.Complete(vote.MessageID, StateDeclined)
	w.metrics.VoteHandled("declined")
	w.metrics.SetPendingRequests(w.ledger.Pending())

	w.logger.Info("Track request declined",
		zap.String("trackID", req.TrackID),
		zap.String("voter", voter))

	w.editVoteMessage(ctx, vote, declinedText(w.localizer, voter, &req.Track))
	w.answer(ctx, vote, w.localizer.T("callback.declined"))
}

func (w *Workflow) resolveApprove(ctx context.Context, vote *chat.Vote, req *TrackRequest, uri, voter string) {
	trackID, _ := tracklink.TrackID(uri)

	if err := w.music.AddToQueue(ctx, trackID); err != nil {
		w.ledger.Complete(vote.MessageID, StateFailed)
		w.metrics.VoteHandled("failed")
		w.metrics.SetPendingRequests(w.ledger.Pending())

		w.logger.Error("Queue append failed",
			zap.String("trackID", trackID),
			zap.String("voter", voter),
			zap.Error(err))

		text := failedText(w.localizer, uri, voter, err)
		if errors.Is(err, ErrUnauthorized) {
			// The credential is dead; flip readiness so /readyz reports it
			// and a stale token is not retried on the next approval.
			if invErr := w.authorizer.Invalidate(); invErr != nil {
				w.logger.Error("Failed to invalidate credential", zap.Error(invErr))
			}
			text = unauthorizedText(w.localizer, uri)
		}
		w.editVoteMessage(ctx, vote, text)
		w.answer(ctx, vote, w.localizer.T("callback.failed"))
		return
	}

	w.dedup.Add(trackID)
	w.ledger.Complete(vote.MessageID, StateApproved)
	w.metrics.VoteHandled("approved")
	w.metrics.QueueAppended()
	w.metrics.SetPendingRequests(w.ledger.Pending())

	w.logger.Info("Track queued",
		zap.String("trackID", trackID),
		zap.String("voter", voter))

	w.editVoteMessage(ctx, vote, approvedText(w.localizer, voter, &req.Track))
	w.answer(ctx, vote, w.localizer.T("callback.approved"))
}

// editVoteMessage writes the outcome into the vote message. If the edit
// fails the outcome is posted as a fresh message so it is never dropped.
func (w *Workflow) editVoteMessage(ctx context.Context, vote *chat.Vote, text string) {
	if err := w.frontend.EditText(ctx, vote.ChatID, vote.MessageID, text); err != nil {
		w.logger.Warn("Failed to edit vote message, sending outcome separately",
			zap.String("messageID", vote.MessageID),
			zap.Error(err))
		if _, sendErr := w.frontend.SendText(ctx, vote.ChatID, "", text); sendErr != nil {
			w.logger.Error("Failed to report vote outcome", zap.Error(sendErr))
		}
	}
}

func (w *Workflow) beginLogin(ctx context.Context, msg *chat.Message) {
	if !w.config.IsAdmin(msg.SenderID) {
		w.reply(ctx, msg, w.localizer.T("login.not_admin"))
		return
	}

	w.loginMu.Lock()
	w.pendingLogins[msg.SenderID] = struct{}{}
	w.loginMu.Unlock()

	w.reply(ctx, msg, w.localizer.T("login.prompt", w.authorizer.AuthorizationURL()))
}

func (w *Workflow) completeLogin(ctx context.Context, msg *chat.Message) {
	if err := w.authorizer.CompleteAuthorization(ctx, strings.TrimSpace(msg.Text)); err != nil {
		w.logger.Warn("Authorization exchange failed", zap.Error(err))
		w.reply(ctx, msg, w.localizer.T("login.invalid"))
		return
	}

	w.logger.Info("Spotify authorization completed", zap.String("adminID", msg.SenderID))
	w.reply(ctx, msg, w.localizer.T("login.saved"))
}

// takePendingLogin consumes a pending login marker for the user.
func (w *Workflow) takePendingLogin(userID string) bool {
	w.loginMu.Lock()
	defer w.loginMu.Unlock()

	if _, ok := w.pendingLogins[userID]; !ok {
		return false
	}
	delete(w.pendingLogins, userID)
	return true
}

func (w *Workflow) reply(ctx context.Context, msg *chat.Message, text string) {
	if _, err := w.frontend.SendText(ctx, msg.ChatID, msg.ID, text); err != nil {
		w.logger.Error("Failed to send reply",
			zap.String("chatID", msg.ChatID),
			zap.Error(err))
	}
}

func (w *Workflow) answer(ctx context.Context, vote *chat.Vote, text string) {
	if err := w.frontend.AnswerCallback(ctx, vote.CallbackID, text); err != nil {
		w.logger.Debug("Failed to answer callback", zap.Error(err))
	}
}
