package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"data_quest/internal/common"
	"data_quest/internal/domain/model"
)

// MemoryStore keeps every table in process memory. A transaction works on a
// copy of the state and swaps it in on commit, so a failed fn leaves nothing
// behind. Transactions are serialized. Repositories from Repos must not be
// used inside RunInTx.
type MemoryStore struct {
	mu sync.Mutex
	st *memState
}

type progressKey struct{ userID, challengeID string }

type memState struct {
	users         map[string]model.User
	challenges    map[string]model.Challenge
	progress      map[progressKey]model.UserProgress
	streaks       map[string]model.Streak
	achievements  map[string]map[string]time.Time
	milestones    map[string]map[string]time.Time
	matches       map[string]model.Match
	notifications []model.Notification
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: &memState{
		users:        map[string]model.User{},
		challenges:   map[string]model.Challenge{},
		progress:     map[progressKey]model.UserProgress{},
		streaks:      map[string]model.Streak{},
		achievements: map[string]map[string]time.Time{},
		milestones:   map[string]map[string]time.Time{},
		matches:      map[string]model.Match{},
	}}
}

func (s *memState) clone() *memState {
	c := &memState{
		users:         make(map[string]model.User, len(s.users)),
		challenges:    make(map[string]model.Challenge, len(s.challenges)),
		progress:      make(map[progressKey]model.UserProgress, len(s.progress)),
		streaks:       make(map[string]model.Streak, len(s.streaks)),
		achievements:  cloneGrants(s.achievements),
		milestones:    cloneGrants(s.milestones),
		matches:       make(map[string]model.Match, len(s.matches)),
		notifications: append([]model.Notification(nil), s.notifications...),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.challenges {
		c.challenges[k] = v
	}
	for k, v := range s.progress {
		c.progress[k] = v
	}
	for k, v := range s.streaks {
		c.streaks[k] = v
	}
	for k, v := range s.matches {
		c.matches[k] = v
	}
	return c
}

func cloneGrants(in map[string]map[string]time.Time) map[string]map[string]time.Time {
	out := make(map[string]map[string]time.Time, len(in))
	for user, grants := range in {
		inner := make(map[string]time.Time, len(grants))
		for id, at := range grants {
			inner[id] = at
		}
		out[user] = inner
	}
	return out
}

func (s *MemoryStore) Repos() Repositories {
	return memRepositories(&memView{store: s})
}

func (s *MemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	work := s.st.clone()
	txCtx, st := withTx(ctx)
	if err := fn(txCtx, memRepositories(&memView{store: s, tx: work})); err != nil {
		st.rollback(ctx)
		return err
	}
	s.st = work
	return nil
}

// memView resolves the state a repository call operates on: the
// transaction's private copy, or the committed state under the store lock.
type memView struct {
	store *MemoryStore
	tx    *memState
}

func (v *memView) with(fn func(st *memState) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.st)
}

func memRepositories(v *memView) Repositories {
	return Repositories{
		Users:         memUsers{v},
		Challenges:    memChallenges{v},
		Progress:      memProgress{v},
		Streaks:       memStreaks{v},
		Achievements:  memGrants{v, func(st *memState) map[string]map[string]time.Time { return st.achievements }},
		Milestones:    memMilestones{memGrants{v, func(st *memState) map[string]map[string]time.Time { return st.milestones }}},
		Matches:       memMatches{v},
		Notifications: memNotifications{v},
	}
}

type memUsers struct{ v *memView }

func (r memUsers) Create(ctx context.Context, user *model.User) error {
	return r.v.with(func(st *memState) error {
		for _, u := range st.users {
			if u.Username == user.Username || u.Email == user.Email {
				return fmt.Errorf("user with given username or email already exists: %w", common.ErrConflict)
			}
		}
		u := *user
		u.UpdatedAt = u.CreatedAt
		st.users[u.ID] = u
		return nil
	})
}

func (r memUsers) find(match func(u model.User) bool) (*model.User, error) {
	var found *model.User
	err := r.v.with(func(st *memState) error {
		for _, u := range st.users {
			if match(u) {
				u := u
				found = &u
				return nil
			}
		}
		return common.ErrNotFound
	})
	return found, err
}

func (r memUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Email == email })
}

func (r memUsers) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Username == username })
}

func (r memUsers) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.ID == id })
}

func (r memUsers) LockByID(ctx context.Context, id string) (*model.User, error) {
	return r.FindByID(ctx, id)
}

func (r memUsers) AddXP(ctx context.Context, id string, delta int64) (int64, error) {
	var total int64
	err := r.v.with(func(st *memState) error {
		u, ok := st.users[id]
		if !ok {
			return common.ErrNotFound
		}
		u.TotalXP += delta
		u.UpdatedAt = time.Now()
		st.users[id] = u
		total = u.TotalXP
		return nil
	})
	return total, err
}

func (r memUsers) ListXP(ctx context.Context) ([]model.UserXP, error) {
	out := []model.UserXP{}
	err := r.v.with(func(st *memState) error {
		for _, u := range st.users {
			if u.TotalXP > 0 {
				out = append(out, model.UserXP{UserID: u.ID, Username: u.Username, TotalXP: u.TotalXP})
			}
		}
		return nil
	})
	return out, err
}

func (r memUsers) ListByXPRange(ctx context.Context, minXP, maxXP int64, limit, offset int) ([]model.UserXP, error) {
	out := []model.UserXP{}
	err := r.v.with(func(st *memState) error {
		for _, u := range st.users {
			if u.TotalXP >= minXP && (maxXP == 0 || u.TotalXP < maxXP) {
				out = append(out, model.UserXP{UserID: u.ID, Username: u.Username, TotalXP: u.TotalXP})
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalXP != out[j].TotalXP {
			return out[i].TotalXP > out[j].TotalXP
		}
		return out[i].Username < out[j].Username
	})
	return page(out, limit, offset), err
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func (r memUsers) Usernames(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	err := r.v.with(func(st *memState) error {
		for _, id := range ids {
			if u, ok := st.users[id]; ok {
				names[id] = u.Username
			}
		}
		return nil
	})
	return names, err
}

type memChallenges struct{ v *memView }

func (r memChallenges) FindByID(ctx context.Context, id string) (*model.Challenge, error) {
	var found *model.Challenge
	err := r.v.with(func(st *memState) error {
		c, ok := st.challenges[id]
		if !ok {
			return common.ErrNotFound
		}
		found = &c
		return nil
	})
	return found, err
}

func (r memChallenges) sorted(st *memState, keep func(c model.Challenge) bool) []model.Challenge {
	out := []model.Challenge{}
	for _, c := range st.challenges {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IslandID != out[j].IslandID {
			return out[i].IslandID < out[j].IslandID
		}
		return out[i].OrderIndex < out[j].OrderIndex
	})
	return out
}

func (r memChallenges) ListWithProgress(ctx context.Context, userID, islandID string) ([]model.ChallengeWithProgress, error) {
	out := []model.ChallengeWithProgress{}
	err := r.v.with(func(st *memState) error {
		for _, c := range r.sorted(st, func(c model.Challenge) bool { return islandID == "" || c.IslandID == islandID }) {
			item := model.ChallengeWithProgress{Challenge: c}
			if p, ok := st.progress[progressKey{userID, c.ID}]; ok {
				score, best := p.Score, p.BestScore
				item.Completed, item.Score, item.BestScore = p.Completed, &score, &best
			}
			out = append(out, item)
		}
		return nil
	})
	return out, err
}

func (r memChallenges) ListMinDifficulty(ctx context.Context, minDifficulty int) ([]model.Challenge, error) {
	var out []model.Challenge
	err := r.v.with(func(st *memState) error {
		out = r.sorted(st, func(c model.Challenge) bool { return c.Difficulty >= minDifficulty })
		sort.SliceStable(out, func(i, j int) bool { return out[i].Difficulty < out[j].Difficulty })
		return nil
	})
	return out, err
}

func (r memChallenges) Upsert(ctx context.Context, c *model.Challenge) error {
	return r.v.with(func(st *memState) error {
		st.challenges[c.ID] = *c
		return nil
	})
}

type memProgress struct{ v *memView }

func (r memProgress) Find(ctx context.Context, userID, challengeID string) (*model.UserProgress, error) {
	var found *model.UserProgress
	err := r.v.with(func(st *memState) error {
		p, ok := st.progress[progressKey{userID, challengeID}]
		if !ok {
			return common.ErrNotFound
		}
		found = &p
		return nil
	})
	return found, err
}

func (r memProgress) Insert(ctx context.Context, p *model.UserProgress) error {
	return r.v.with(func(st *memState) error {
		key := progressKey{p.UserID, p.ChallengeID}
		if _, ok := st.progress[key]; ok {
			return fmt.Errorf("progress for %s already exists: %w", p.ChallengeID, common.ErrConflict)
		}
		st.progress[key] = *p
		return nil
	})
}

func (r memProgress) Update(ctx context.Context, p *model.UserProgress) error {
	return r.v.with(func(st *memState) error {
		key := progressKey{p.UserID, p.ChallengeID}
		if _, ok := st.progress[key]; !ok {
			return common.ErrNotFound
		}
		st.progress[key] = *p
		return nil
	})
}

func (r memProgress) Stats(ctx context.Context, userID string) (*model.ProgressStats, error) {
	stats := &model.ProgressStats{CompletedByIsle: map[string]int{}, TotalByIsle: map[string]int{}}
	err := r.v.with(func(st *memState) error {
		for _, c := range st.challenges {
			stats.TotalByIsle[c.IslandID]++
			if _, ok := stats.CompletedByIsle[c.IslandID]; !ok {
				stats.CompletedByIsle[c.IslandID] = 0
			}
		}
		for key, p := range st.progress {
			if key.userID != userID {
				continue
			}
			stats.Attempted++
			stats.TotalBestScore += int64(p.BestScore)
			if p.BestScore >= model.PerfectScore {
				stats.Perfect++
			}
			if !p.Completed {
				continue
			}
			stats.Completed++
			if p.BestTime != nil && *p.BestTime < model.FastSolveSeconds {
				stats.FastSolves++
			}
			if c, ok := st.challenges[p.ChallengeID]; ok {
				stats.CompletedByIsle[c.IslandID]++
			}
		}
		if stats.Attempted > 0 {
			stats.AvgBestScore = float64(stats.TotalBestScore) / float64(stats.Attempted)
		}
		return nil
	})
	return stats, err
}

func (r memProgress) ListByUser(ctx context.Context, userID string) ([]model.ProgressEntry, error) {
	out := []model.ProgressEntry{}
	err := r.v.with(func(st *memState) error {
		for key, p := range st.progress {
			c, ok := st.challenges[p.ChallengeID]
			if key.userID != userID || !ok {
				continue
			}
			out = append(out, model.ProgressEntry{
				UserProgress: p,
				IslandID:     c.IslandID,
				SectionID:    c.SectionID,
				Title:        c.Title,
				Difficulty:   c.Difficulty,
			})
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ChallengeID < out[j].ChallengeID
	})
	return out, err
}

func (r memProgress) IslandStandings(ctx context.Context, islandID string, limit int) ([]model.IslandStanding, error) {
	out := []model.IslandStanding{}
	err := r.v.with(func(st *memState) error {
		byUser := map[string]*model.IslandStanding{}
		for key, p := range st.progress {
			c, ok := st.challenges[p.ChallengeID]
			if !ok || c.IslandID != islandID {
				continue
			}
			s := byUser[key.userID]
			if s == nil {
				s = &model.IslandStanding{UserID: key.userID, Username: st.users[key.userID].Username}
				byUser[key.userID] = s
			}
			s.IslandScore += int64(p.BestScore)
			if p.Completed {
				s.Completed++
			}
		}
		for _, s := range byUser {
			if s.Completed > 0 {
				out = append(out, *s)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].IslandScore != out[j].IslandScore {
			return out[i].IslandScore > out[j].IslandScore
		}
		if out[i].Completed != out[j].Completed {
			return out[i].Completed > out[j].Completed
		}
		return out[i].Username < out[j].Username
	})
	out = page(out, limit, 0)
	for i := range out {
		out[i].Rank = int64(i + 1)
	}
	return out, err
}

type memStreaks struct{ v *memView }

func (r memStreaks) Find(ctx context.Context, userID string) (*model.Streak, error) {
	var found *model.Streak
	err := r.v.with(func(st *memState) error {
		s, ok := st.streaks[userID]
		if !ok {
			return common.ErrNotFound
		}
		found = &s
		return nil
	})
	return found, err
}

func (r memStreaks) Save(ctx context.Context, s *model.Streak) error {
	if _, err := time.Parse(model.DateLayout, s.LastLoginDate); err != nil {
		return fmt.Errorf("invalid last login date %q: %w", s.LastLoginDate, common.ErrValidation)
	}
	return r.v.with(func(st *memState) error {
		st.streaks[s.UserID] = *s
		return nil
	})
}

// memGrants backs both achievements and milestones: user -> id -> time.
type memGrants struct {
	v     *memView
	table func(st *memState) map[string]map[string]time.Time
}

type grant struct {
	id string
	at time.Time
}

func (r memGrants) list(userID string) ([]grant, error) {
	out := []grant{}
	err := r.v.with(func(st *memState) error {
		for id, at := range r.table(st)[userID] {
			out = append(out, grant{id, at})
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].at.Equal(out[j].at) {
			return out[i].at.After(out[j].at)
		}
		return out[i].id < out[j].id
	})
	return out, err
}

func (r memGrants) Grant(ctx context.Context, userID, id string, at time.Time) (bool, error) {
	granted := false
	err := r.v.with(func(st *memState) error {
		table := r.table(st)
		if table[userID] == nil {
			table[userID] = map[string]time.Time{}
		}
		if _, ok := table[userID][id]; ok {
			return nil
		}
		table[userID][id] = at
		granted = true
		return nil
	})
	return granted, err
}

func (r memGrants) ListByUser(ctx context.Context, userID string) ([]model.Achievement, error) {
	grants, err := r.list(userID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Achievement, 0, len(grants))
	for _, g := range grants {
		out = append(out, model.Achievement{UserID: userID, BadgeID: g.id, UnlockedAt: g.at})
	}
	return out, nil
}

type memMilestones struct{ memGrants }

func (r memMilestones) ListByUser(ctx context.Context, userID string) ([]model.UserMilestone, error) {
	grants, err := r.list(userID)
	if err != nil {
		return nil, err
	}
	out := make([]model.UserMilestone, 0, len(grants))
	for _, g := range grants {
		out = append(out, model.UserMilestone{UserID: userID, MilestoneID: g.id, AchievedAt: g.at})
	}
	return out, nil
}

type memMatches struct{ v *memView }

func (r memMatches) Create(ctx context.Context, m *model.Match) error {
	return r.v.with(func(st *memState) error {
		if _, ok := st.matches[m.ID]; ok {
			return fmt.Errorf("match %s already exists: %w", m.ID, common.ErrConflict)
		}
		st.matches[m.ID] = *m
		return nil
	})
}

func (r memMatches) FindByID(ctx context.Context, id string) (*model.Match, error) {
	var found *model.Match
	err := r.v.with(func(st *memState) error {
		m, ok := st.matches[id]
		if !ok {
			return common.ErrNotFound
		}
		found = &m
		return nil
	})
	return found, err
}

func (r memMatches) LockByID(ctx context.Context, id string) (*model.Match, error) {
	return r.FindByID(ctx, id)
}

// pick returns the first match in created_at order (newest first when desc).
func (r memMatches) pick(desc bool, keep func(m model.Match) bool) (*model.Match, error) {
	var found *model.Match
	err := r.v.with(func(st *memState) error {
		for _, m := range sortedMatches(st, desc) {
			if keep(m) {
				m := m
				found = &m
				return nil
			}
		}
		return common.ErrNotFound
	})
	return found, err
}

func sortedMatches(st *memState, desc bool) []model.Match {
	out := make([]model.Match, 0, len(st.matches))
	for _, m := range st.matches {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt) != desc
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r memMatches) FindOpenForUser(ctx context.Context, userID, challengeID string, now time.Time) (*model.Match, error) {
	return r.pick(true, func(m model.Match) bool {
		return m.ChallengeID == challengeID && m.IsParticipant(userID) &&
			(m.Status == model.MatchPending || m.Status == model.MatchActive) &&
			m.ExpiresAt.After(now)
	})
}

func (r memMatches) LockJoinable(ctx context.Context, challengeID, userID string, now time.Time) (*model.Match, error) {
	return r.pick(false, func(m model.Match) bool {
		return m.ChallengeID == challengeID && m.Status == model.MatchPending &&
			m.Player1ID != userID && m.Player2ID == nil && m.ExpiresAt.After(now)
	})
}

func (r memMatches) Update(ctx context.Context, m *model.Match) error {
	return r.v.with(func(st *memState) error {
		if _, ok := st.matches[m.ID]; !ok {
			return common.ErrNotFound
		}
		st.matches[m.ID] = *m
		return nil
	})
}

func (r memMatches) ListByUser(ctx context.Context, userID string, status model.MatchStatus) ([]model.Match, error) {
	out := []model.Match{}
	err := r.v.with(func(st *memState) error {
		for _, m := range sortedMatches(st, true) {
			if m.IsParticipant(userID) && (status == "" || m.Status == status) {
				out = append(out, m)
				if len(out) == 50 {
					break
				}
			}
		}
		return nil
	})
	return out, err
}

func (r memMatches) ExpireOpen(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.v.with(func(st *memState) error {
		for id, m := range st.matches {
			open := m.Status == model.MatchPending || m.Status == model.MatchActive
			if open && !m.ExpiresAt.After(now) {
				m.Status = model.MatchCancelled
				st.matches[id] = m
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r memMatches) Standings(ctx context.Context, limit int) ([]model.PvPStanding, error) {
	out := []model.PvPStanding{}
	err := r.v.with(func(st *memState) error {
		byUser := map[string]*model.PvPStanding{}
		tally := func(userID string, winner *string) {
			u, ok := st.users[userID]
			if !ok {
				return
			}
			s := byUser[userID]
			if s == nil {
				s = &model.PvPStanding{UserID: userID, Username: u.Username}
				byUser[userID] = s
			}
			switch {
			case winner == nil:
				s.Draws++
			case *winner == userID:
				s.Wins++
			default:
				s.Losses++
			}
		}
		for _, m := range st.matches {
			if m.Status != model.MatchCompleted {
				continue
			}
			tally(m.Player1ID, m.WinnerID)
			if m.Player2ID != nil {
				tally(*m.Player2ID, m.WinnerID)
			}
		}
		for _, s := range byUser {
			out = append(out, *s)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		if out[i].Draws != out[j].Draws {
			return out[i].Draws > out[j].Draws
		}
		return out[i].Username < out[j].Username
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

type memNotifications struct{ v *memView }

func (r memNotifications) Create(ctx context.Context, n *model.Notification) error {
	return r.v.with(func(st *memState) error {
		st.notifications = append(st.notifications, *n)
		return nil
	})
}

func (r memNotifications) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	out := []model.Notification{}
	err := r.v.with(func(st *memState) error {
		for i := len(st.notifications) - 1; i >= 0; i-- {
			n := st.notifications[i]
			if n.UserID != userID || (unreadOnly && n.Read) {
				continue
			}
			out = append(out, n)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (r memNotifications) MarkRead(ctx context.Context, userID, id string) error {
	return r.v.with(func(st *memState) error {
		for i := range st.notifications {
			if st.notifications[i].ID == id && st.notifications[i].UserID == userID {
				st.notifications[i].Read = true
				return nil
			}
		}
		return common.ErrNotFound
	})
}
