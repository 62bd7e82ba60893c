// Package quest implements the quest lifecycle: active, then player_done,
// then completed. Approval grants the quest reward to the assigned player
// in the same transaction that completes the quest.
package quest

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/playperu/questboard/internal/apperr"
	"github.com/playperu/questboard/internal/docstore"
	"github.com/playperu/questboard/internal/notify"
	"github.com/playperu/questboard/internal/player"
	"github.com/playperu/questboard/internal/progression"
	"github.com/playperu/questboard/internal/questboard"
)

// DefaultDuration is how long a new or duplicated quest stays open when no
// end time is given.
const DefaultDuration = 24 * time.Hour

type CreateInput struct {
	Logo         string                   `json:"logo"`
	Name         string                   `json:"name"`
	Description  string                   `json:"description"`
	Task         string                   `json:"task"`
	Players      []string                 `json:"players"`
	EndTime      time.Time                `json:"endTime"`
	Verification *questboard.Verification `json:"verification,omitempty"`
	Reward       questboard.Reward        `json:"reward"`
}

type UpdateInput struct {
	Logo           *string                  `json:"logo,omitempty"`
	Name           *string                  `json:"name,omitempty"`
	Description    *string                  `json:"description,omitempty"`
	Task           *string                  `json:"task,omitempty"`
	AssignedPlayer *string                  `json:"assignedPlayer,omitempty"`
	EndTime        *time.Time               `json:"endTime,omitempty"`
	Verification   *questboard.Verification `json:"verification,omitempty"`
	Reward         *questboard.Reward       `json:"reward,omitempty"`
}

// BatchResult reports a fan-out create: one quest per player.
type BatchResult struct {
	Created  []questboard.Quest   `json:"created"`
	Failures []questboard.Failure `json:"failures"`
}

// View is a quest with its derived expiry flag.
type View struct {
	questboard.Quest
	Expired bool `json:"expired"`
}

// ApproveResult is the completed quest and the rewarded player.
type ApproveResult struct {
	Quest  questboard.Quest  `json:"quest"`
	Player questboard.Player `json:"player"`
}

type Service struct {
	db       docstore.DB
	notifier notify.Notifier
	policy   progression.Policy
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(db docstore.DB, notifier notify.Notifier, policy progression.Policy, logger *slog.Logger) *Service {
	return &Service{
		db:       db,
		notifier: notifier,
		policy:   policy,
		logger:   logger,
		now:      time.Now,
	}
}

func load(ctx context.Context, q docstore.Querier, id string) (questboard.Quest, error) {
	var qu questboard.Quest
	err := q.Get(ctx, questboard.CollQuests, id, &qu)
	if errors.Is(err, docstore.ErrNotFound) {
		return qu, apperr.NotFoundError{Kind: "quest", ID: id}
	}
	if err != nil {
		return qu, apperr.Store("get quest", err)
	}
	if qu.ID == "" {
		qu.ID = id
	}
	if qu.Status == "" {
		qu.Status = questboard.QuestActive
	}
	return qu, nil
}

func save(ctx context.Context, q docstore.Querier, qu questboard.Quest) error {
	return apperr.Store("put quest", q.Put(ctx, questboard.CollQuests, qu.ID, qu))
}

func (s *Service) Get(ctx context.Context, id string) (questboard.Quest, error) {
	return load(ctx, s.db, id)
}

// Create fans out one active quest per selected player. A player that
// cannot be resolved or saved is reported in Failures and does not stop
// the rest of the batch.
func (s *Service) Create(ctx context.Context, in CreateInput) (BatchResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return BatchResult{}, apperr.ValidationError{Field: "name", Message: "is required"}
	}
	if in.Reward.XP < 0 || in.Reward.Points < 0 {
		return BatchResult{}, apperr.ValidationError{Field: "reward", Message: "must not be negative"}
	}

	var refs []string
	for _, ref := range in.Players {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		if questboard.IsAllPlayers(ref) {
			return BatchResult{}, apperr.ValidationError{Field: "players", Message: "select specific players instead of all players"}
		}
		if !slices.Contains(refs, ref) {
			refs = append(refs, ref)
		}
	}
	if len(refs) == 0 {
		return BatchResult{}, apperr.ValidationError{Field: "players", Message: "select at least one player"}
	}

	now := s.now().UTC()
	endTime := in.EndTime
	if endTime.IsZero() {
		endTime = now.Add(DefaultDuration)
	}

	res := BatchResult{Created: []questboard.Quest{}, Failures: []questboard.Failure{}}
	for _, ref := range refs {
		p, err := player.Resolve(ctx, s.db, ref)
		if err != nil {
			res.Failures = append(res.Failures, questboard.Failure{PlayerID: ref, Reason: apperr.Message(err)})
			continue
		}

		qu := questboard.Quest{
			ID:             docstore.NewID(),
			Logo:           in.Logo,
			Name:           in.Name,
			Description:    in.Description,
			AssignedPlayer: p.ID,
			Task:           in.Task,
			EndTime:        endTime,
			Verification:   in.Verification,
			Reward:         in.Reward,
			Status:         questboard.QuestActive,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := save(ctx, s.db, qu); err != nil {
			s.logger.Error("creating quest", "player_id", p.ID, "error", err)
			res.Failures = append(res.Failures, questboard.Failure{PlayerID: p.ID, Reason: apperr.Message(err)})
			continue
		}
		res.Created = append(res.Created, qu)
		s.notifyQuest(ctx, qu)
	}

	s.logger.Info("quests created", "name", in.Name, "created", len(res.Created), "failed", len(res.Failures))
	return res, nil
}

// Update edits descriptive fields. Completed quests are read-only.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (questboard.Quest, error) {
	var qu questboard.Quest
	err := s.db.RunInTx(ctx, func(tx docstore.Querier) error {
		var err error
		qu, err = load(ctx, tx, id)
		if err != nil {
			return err
		}
		if qu.Status == questboard.QuestCompleted {
			return apperr.InvalidStateError{Kind: "quest", ID: id, State: string(qu.Status), Op: "edit"}
		}

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return apperr.ValidationError{Field: "name", Message: "is required"}
			}
			qu.Name = name
		}
		if in.Logo != nil {
			qu.Logo = *in.Logo
		}
		if in.Description != nil {
			qu.Description = *in.Description
		}
		if in.Task != nil {
			qu.Task = *in.Task
		}
		if in.EndTime != nil {
			qu.EndTime = *in.EndTime
		}
		if in.Verification != nil {
			qu.Verification = in.Verification
		}
		if in.Reward != nil {
			if in.Reward.XP < 0 || in.Reward.Points < 0 {
				return apperr.ValidationError{Field: "reward", Message: "must not be negative"}
			}
			qu.Reward = *in.Reward
		}
		if in.AssignedPlayer != nil {
			p, err := player.Resolve(ctx, tx, *in.AssignedPlayer)
			if err != nil {
				return err
			}
			qu.AssignedPlayer = p.ID
		}
		qu.UpdatedAt = s.now().UTC()
		return save(ctx, tx, qu)
	})
	if err != nil {
		return questboard.Quest{}, apperr.Store("update quest", err)
	}

	s.notifyQuest(ctx, qu)
	return qu, nil
}

// ReportDone records a player's claim that the quest is finished. Repeating
// it is a no-op unless a new justification is attached. playerID may be
// empty for admin-side calls; otherwise it must own the quest.
func (s *Service) ReportDone(ctx context.Context, id, playerID, justification string) (questboard.Quest, error) {
	justification = strings.TrimSpace(justification)
	changed := false

	var qu questboard.Quest
	err := s.db.RunInTx(ctx, func(tx docstore.Querier) error {
		var err error
		qu, err = load(ctx, tx, id)
		if err != nil {
			return err
		}
		if qu.Status == questboard.QuestCompleted {
			return apperr.InvalidStateError{Kind: "quest", ID: id, State: string(qu.Status), Op: "report done"}
		}

		playerName := ""
		if playerID != "" {
			p, err := player.Load(ctx, tx, playerID)
			if err != nil {
				return err
			}
			if !owns(qu, p) {
				return apperr.ForbiddenError{Reason: "quest belongs to another player"}
			}
			playerName = p.Name
		}

		if qu.Status == questboard.QuestPlayerDone && justification == "" {
			return nil
		}

		now := s.now().UTC()
		qu.Status = questboard.QuestPlayerDone
		if justification != "" {
			qu.Justification = &questboard.Justification{
				Message:    justification,
				PlayerName: playerName,
				Timestamp:  now,
				Status:     questboard.JustificationPending,
			}
		}
		qu.UpdatedAt = now
		changed = true
		return save(ctx, tx, qu)
	})
	if err != nil {
		return questboard.Quest{}, apperr.Store("report quest done", err)
	}

	if changed {
		s.logger.Info("quest reported done", "quest_id", id, "player_id", playerID)
		s.notifyQuest(ctx, qu)
	}
	return qu, nil
}

// Approve completes the quest and grants its reward exactly once. Expired
// quests can still be approved.
func (s *Service) Approve(ctx context.Context, id string) (ApproveResult, error) {
	var res ApproveResult
	err := s.db.RunInTx(ctx, func(tx docstore.Querier) error {
		qu, err := load(ctx, tx, id)
		if err != nil {
			return err
		}
		if qu.Status == questboard.QuestCompleted {
			return apperr.AlreadyCompletedError{QuestID: id}
		}

		p, err := player.Resolve(ctx, tx, qu.AssignedPlayer)
		if err != nil {
			return err
		}

		player.GrantXP(&p, s.policy, qu.Reward.XP)
		p.Points += qu.Reward.Points
		if err := player.Save(ctx, tx, p); err != nil {
			return err
		}

		now := s.now().UTC()
		qu.Status = questboard.QuestCompleted
		qu.CompletedAt = &now
		qu.CompletedBy = p.ID
		qu.UpdatedAt = now
		if qu.Justification != nil {
			qu.Justification.Status = questboard.JustificationReviewed
		}
		if err := save(ctx, tx, qu); err != nil {
			return err
		}

		res = ApproveResult{Quest: qu, Player: p}
		return nil
	})
	if err != nil {
		return ApproveResult{}, apperr.Store("approve quest", err)
	}

	s.logger.Info("quest approved",
		"quest_id", id,
		"player_id", res.Player.ID,
		"xp", res.Quest.Reward.XP,
		"points", res.Quest.Reward.Points,
		"level", res.Player.Level,
	)
	s.notifyQuest(ctx, res.Quest)
	s.notifier.Notify(ctx, player.StatsEvent(res.Player, s.now()))
	return res, nil
}

// Duplicate copies a quest's descriptive fields into a new active quest
// that ends DefaultDuration from now.
func (s *Service) Duplicate(ctx context.Context, id string) (questboard.Quest, error) {
	src, err := load(ctx, s.db, id)
	if err != nil {
		return questboard.Quest{}, err
	}

	now := s.now().UTC()
	qu := questboard.Quest{
		ID:             docstore.NewID(),
		Logo:           src.Logo,
		Name:           src.Name + " (Copy)",
		Description:    src.Description,
		AssignedPlayer: src.AssignedPlayer,
		Task:           src.Task,
		EndTime:        now.Add(DefaultDuration),
		Verification:   src.Verification,
		Reward:         src.Reward,
		Status:         questboard.QuestActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := save(ctx, s.db, qu); err != nil {
		return questboard.Quest{}, err
	}

	s.notifyQuest(ctx, qu)
	return qu, nil
}

// Delete removes a quest regardless of its status.
func (s *Service) Delete(ctx context.Context, id string) error {
	qu, err := load(ctx, s.db, id)
	if err != nil {
		return err
	}
	err = s.db.Delete(ctx, questboard.CollQuests, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return apperr.NotFoundError{Kind: "quest", ID: id}
	}
	if err != nil {
		return apperr.Store("delete quest", err)
	}

	s.logger.Info("quest deleted", "quest_id", id)
	s.notifier.Notify(ctx, notify.Event{
		Type:     notify.QuestStatusUpdated,
		PlayerID: qu.AssignedPlayer,
		QuestID:  id,
		Status:   "deleted",
		At:       s.now(),
	})
	return nil
}

// ListActive returns every non-completed quest, newest first.
func (s *Service) ListActive(ctx context.Context) ([]View, error) {
	return s.list(ctx, func(questboard.Quest) bool { return true })
}

// ListForPlayer returns a player's non-completed quests, newest first.
func (s *Service) ListForPlayer(ctx context.Context, playerID string) ([]View, error) {
	p, err := player.Load(ctx, s.db, playerID)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, func(qu questboard.Quest) bool { return owns(qu, p) })
}

func (s *Service) list(ctx context.Context, keep func(questboard.Quest) bool) ([]View, error) {
	docs, err := s.db.List(ctx, questboard.CollQuests)
	if err != nil {
		return nil, apperr.Store("list quests", err)
	}
	quests, err := docstore.DecodeAll[questboard.Quest](docs)
	if err != nil {
		return nil, apperr.Store("decode quests", err)
	}

	now := s.now()
	views := make([]View, 0, len(quests))
	for i, qu := range quests {
		if qu.ID == "" {
			qu.ID = docs[i].ID
		}
		if qu.Status == "" {
			qu.Status = questboard.QuestActive
		}
		if qu.Status == questboard.QuestCompleted || !keep(qu) {
			continue
		}
		views = append(views, View{Quest: qu, Expired: qu.Expired(now)})
	}
	slices.SortStableFunc(views, func(a, b View) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
	return views, nil
}

func (s *Service) notifyQuest(ctx context.Context, qu questboard.Quest) {
	s.notifier.Notify(ctx, notify.Event{
		Type:     notify.QuestStatusUpdated,
		PlayerID: qu.AssignedPlayer,
		QuestID:  qu.ID,
		Status:   string(qu.Status),
		At:       s.now(),
	})
}

// owns accepts the legacy email, name and all-players assignments as well
// as the id.
func owns(qu questboard.Quest, p questboard.Player) bool {
	if questboard.IsAllPlayers(qu.AssignedPlayer) {
		return true
	}
	a := strings.TrimSpace(qu.AssignedPlayer)
	return a == p.ID || (p.Email != "" && strings.EqualFold(a, p.Email)) || (p.Name != "" && a == p.Name)
}
