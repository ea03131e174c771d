// Package memstore is an in-memory entity store used for tests and local
// development. It mirrors the behaviour of the PostgreSQL repositories,
// including their uniqueness rules and sentinel errors.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/videocave/backend/internal/apperr"
	"github.com/videocave/backend/internal/models"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = fmt.Errorf("record %w", apperr.ErrNotFound)
	// ErrConflict indicates the write would violate a uniqueness rule or the
	// record is not in the state the write expects.
	ErrConflict = fmt.Errorf("record %w", apperr.ErrConflict)
)

// Store holds every table behind a single mutex.
type Store struct {
	mu            sync.RWMutex
	users         map[string]models.User
	videos        map[string]models.Video
	tweets        map[string]models.Tweet
	comments      map[string]models.Comment
	playlists     map[string]models.Playlist
	subscriptions []models.Subscription
	likes         []models.Like
	now           func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:     make(map[string]models.User),
		videos:    make(map[string]models.Video),
		tweets:    make(map[string]models.Tweet),
		comments:  make(map[string]models.Comment),
		playlists: make(map[string]models.Playlist),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithNowFunc overrides the clock used for updated timestamps.
func (s *Store) WithNowFunc(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *Store) Users() *Users                 { return &Users{s: s} }
func (s *Store) Videos() *Videos               { return &Videos{s: s} }
func (s *Store) Tweets() *Tweets               { return &Tweets{s: s} }
func (s *Store) Comments() *Comments           { return &Comments{s: s} }
func (s *Store) Playlists() *Playlists         { return &Playlists{s: s} }
func (s *Store) Subscriptions() *Subscriptions { return &Subscriptions{s: s} }
func (s *Store) Likes() *Likes                 { return &Likes{s: s} }

// Users is the identity table.
type Users struct{ s *Store }

func (u *Users) Create(_ context.Context, user models.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	if _, ok := u.s.users[user.ID]; ok {
		return ErrConflict
	}
	for _, existing := range u.s.users {
		if existing.Email == user.Email || (user.Handle != "" && existing.Handle == user.Handle) {
			return ErrConflict
		}
	}
	u.s.users[user.ID] = cloneUser(user)
	return nil
}

func (u *Users) FindByID(_ context.Context, id string) (models.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	user, ok := u.s.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return cloneUser(user), nil
}

func (u *Users) FindByEmail(_ context.Context, email string) (models.User, error) {
	return u.findBy(func(user models.User) bool { return user.Email == email })
}

func (u *Users) FindByHandle(_ context.Context, handle string) (models.User, error) {
	return u.findBy(func(user models.User) bool { return user.Handle == handle })
}

func (u *Users) FindByIDs(_ context.Context, ids []string) ([]models.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := u.s.users[id]; ok {
			out = append(out, cloneUser(user))
		}
	}
	return out, nil
}

func (u *Users) SetVerificationToken(_ context.Context, id, token string) error {
	return u.update(id, func(user *models.User) error {
		user.VerificationToken = token
		return nil
	})
}

// MarkEmailVerified flags the email verified and clears the stored token, but
// only while the identity is unverified and still holds token.
func (u *Users) MarkEmailVerified(_ context.Context, id, token string) error {
	return u.update(id, func(user *models.User) error {
		if user.EmailVerified || user.VerificationToken != token {
			return ErrConflict
		}
		user.EmailVerified = true
		user.VerificationToken = ""
		return nil
	})
}

// CompleteProfile fails with ErrConflict when the profile is already complete
// or the handle belongs to another identity.
func (u *Users) CompleteProfile(_ context.Context, id, handle string, avatar models.AssetRef, cover *models.AssetRef) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	user, ok := u.s.users[id]
	if !ok {
		return ErrNotFound
	}
	if user.ProfileCompleted {
		return ErrConflict
	}
	for otherID, other := range u.s.users {
		if otherID != id && other.Handle == handle {
			return ErrConflict
		}
	}
	user.Handle = handle
	user.AvatarURL, user.AvatarPublicID = avatar.URL, avatar.PublicID
	if cover != nil {
		user.CoverURL, user.CoverPublicID = cover.URL, cover.PublicID
	}
	user.ProfileCompleted = true
	user.UpdatedAt = u.s.now()
	u.s.users[id] = user
	return nil
}

// UpdateAccount changes the non-empty fields among email and fullName.
func (u *Users) UpdateAccount(_ context.Context, id, email, fullName string) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	user, ok := u.s.users[id]
	if !ok {
		return ErrNotFound
	}
	if email != "" {
		for otherID, other := range u.s.users {
			if otherID != id && other.Email == email {
				return ErrConflict
			}
		}
		user.Email = email
	}
	if fullName != "" {
		user.FullName = fullName
	}
	user.UpdatedAt = u.s.now()
	u.s.users[id] = user
	return nil
}

func (u *Users) UpdateAvatar(_ context.Context, id string, asset models.AssetRef) error {
	return u.update(id, func(user *models.User) error {
		user.AvatarURL, user.AvatarPublicID = asset.URL, asset.PublicID
		return nil
	})
}

func (u *Users) UpdateCover(_ context.Context, id string, asset models.AssetRef) error {
	return u.update(id, func(user *models.User) error {
		user.CoverURL, user.CoverPublicID = asset.URL, asset.PublicID
		return nil
	})
}

func (u *Users) UpdatePassword(_ context.Context, id, hash string) error {
	return u.update(id, func(user *models.User) error {
		user.PasswordHash = hash
		return nil
	})
}

func (u *Users) SetRefreshToken(_ context.Context, id, token string) error {
	return u.update(id, func(user *models.User) error {
		user.RefreshToken = token
		return nil
	})
}

// RotateRefreshToken replaces presented with next, failing with ErrConflict
// when presented is no longer the stored token.
func (u *Users) RotateRefreshToken(_ context.Context, id, presented, next string) error {
	return u.update(id, func(user *models.User) error {
		if user.RefreshToken == "" || user.RefreshToken != presented {
			return ErrConflict
		}
		user.RefreshToken = next
		return nil
	})
}

func (u *Users) ClearRefreshToken(_ context.Context, id string) error {
	return u.update(id, func(user *models.User) error {
		user.RefreshToken = ""
		return nil
	})
}

// RecordView appends videoID to the watch history, moving an existing entry
// to the end.
func (u *Users) RecordView(_ context.Context, id, videoID string) error {
	return u.update(id, func(user *models.User) error {
		user.WatchHistory = append(without(user.WatchHistory, videoID), videoID)
		return nil
	})
}

func (u *Users) RemoveFromHistory(_ context.Context, id, videoID string) error {
	return u.update(id, func(user *models.User) error {
		user.WatchHistory = without(user.WatchHistory, videoID)
		return nil
	})
}

func (u *Users) ClearHistory(_ context.Context, id string) error {
	return u.update(id, func(user *models.User) error {
		user.WatchHistory = []string{}
		return nil
	})
}

func (u *Users) findBy(match func(models.User) bool) (models.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	for _, user := range u.s.users {
		if match(user) {
			return cloneUser(user), nil
		}
	}
	return models.User{}, ErrNotFound
}

func (u *Users) update(id string, fn func(*models.User) error) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	user, ok := u.s.users[id]
	if !ok {
		return ErrNotFound
	}
	if err := fn(&user); err != nil {
		return err
	}
	user.UpdatedAt = u.s.now()
	u.s.users[id] = user
	return nil
}

// Videos is the video table.
type Videos struct{ s *Store }

func (v *Videos) Create(_ context.Context, video models.Video) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	if _, ok := v.s.videos[video.ID]; ok {
		return ErrConflict
	}
	v.s.videos[video.ID] = video
	return nil
}

func (v *Videos) FindByID(_ context.Context, id string) (models.Video, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	video, ok := v.s.videos[id]
	if !ok {
		return models.Video{}, ErrNotFound
	}
	return video, nil
}

// FindByIDs returns the existing videos among ids in map order, which is
// deliberately unrelated to the order of ids.
func (v *Videos) FindByIDs(_ context.Context, ids []string) ([]models.Video, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	out := make([]models.Video, 0, len(ids))
	for id, video := range v.s.videos {
		if _, ok := wanted[id]; ok {
			out = append(out, video)
		}
	}
	return out, nil
}

// Tweets is the tweet table.
type Tweets struct{ s *Store }

func (t *Tweets) Create(_ context.Context, tweet models.Tweet) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if _, ok := t.s.tweets[tweet.ID]; ok {
		return ErrConflict
	}
	t.s.tweets[tweet.ID] = tweet
	return nil
}

func (t *Tweets) FindByID(_ context.Context, id string) (models.Tweet, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	tweet, ok := t.s.tweets[id]
	if !ok {
		return models.Tweet{}, ErrNotFound
	}
	return tweet, nil
}

// Comments is the comment table.
type Comments struct{ s *Store }

func (c *Comments) Create(_ context.Context, comment models.Comment) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if _, ok := c.s.comments[comment.ID]; ok {
		return ErrConflict
	}
	c.s.comments[comment.ID] = comment
	return nil
}

func (c *Comments) FindByID(_ context.Context, id string) (models.Comment, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	comment, ok := c.s.comments[id]
	if !ok {
		return models.Comment{}, ErrNotFound
	}
	return comment, nil
}

func (c *Comments) Update(_ context.Context, id, content string) (models.Comment, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	comment, ok := c.s.comments[id]
	if !ok {
		return models.Comment{}, ErrNotFound
	}
	comment.Content = content
	comment.UpdatedAt = c.s.now()
	c.s.comments[id] = comment
	return comment, nil
}

// Delete removes the comment and every like pointing at it.
func (c *Comments) Delete(_ context.Context, id string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if _, ok := c.s.comments[id]; !ok {
		return ErrNotFound
	}
	delete(c.s.comments, id)

	target := models.CommentTarget(id)
	kept := c.s.likes[:0]
	for _, like := range c.s.likes {
		if like.Target != target {
			kept = append(kept, like)
		}
	}
	c.s.likes = kept
	return nil
}

// ListByVideo returns one page of comments on videoID, newest first, and the
// total number of comments on the video.
func (c *Comments) ListByVideo(_ context.Context, videoID string, limit, offset int) ([]models.Comment, int, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	var all []models.Comment
	for _, comment := range c.s.comments {
		if comment.VideoID == videoID {
			all = append(all, comment)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	if offset >= total {
		return []models.Comment{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return append([]models.Comment{}, all[offset:end]...), total, nil
}

// Playlists is the playlist table.
type Playlists struct{ s *Store }

func (p *Playlists) Create(_ context.Context, playlist models.Playlist) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	if _, ok := p.s.playlists[playlist.ID]; ok {
		return ErrConflict
	}
	playlist.VideoIDs = append([]string{}, playlist.VideoIDs...)
	p.s.playlists[playlist.ID] = playlist
	return nil
}

func (p *Playlists) FindByID(_ context.Context, id string) (models.Playlist, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	playlist, ok := p.s.playlists[id]
	if !ok {
		return models.Playlist{}, ErrNotFound
	}
	return clonePlaylist(playlist), nil
}

// ListByOwner returns the owner's playlists, most recently updated first.
func (p *Playlists) ListByOwner(_ context.Context, ownerID string) ([]models.Playlist, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	out := []models.Playlist{}
	for _, playlist := range p.s.playlists {
		if playlist.OwnerID == ownerID {
			out = append(out, clonePlaylist(playlist))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Update changes the non-empty fields among name and description.
func (p *Playlists) Update(_ context.Context, id, name, description string) (models.Playlist, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	playlist, ok := p.s.playlists[id]
	if !ok {
		return models.Playlist{}, ErrNotFound
	}
	if name != "" {
		playlist.Name = name
	}
	if description != "" {
		playlist.Description = description
	}
	playlist.UpdatedAt = p.s.now()
	p.s.playlists[id] = playlist
	return clonePlaylist(playlist), nil
}

func (p *Playlists) Delete(_ context.Context, id string) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	if _, ok := p.s.playlists[id]; !ok {
		return ErrNotFound
	}
	delete(p.s.playlists, id)
	return nil
}

// AddVideo appends videoID, failing with ErrConflict when already present.
func (p *Playlists) AddVideo(_ context.Context, id, videoID string) (models.Playlist, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	playlist, ok := p.s.playlists[id]
	if !ok {
		return models.Playlist{}, ErrNotFound
	}
	for _, existing := range playlist.VideoIDs {
		if existing == videoID {
			return models.Playlist{}, ErrConflict
		}
	}
	playlist.VideoIDs = append(append([]string{}, playlist.VideoIDs...), videoID)
	playlist.UpdatedAt = p.s.now()
	p.s.playlists[id] = playlist
	return clonePlaylist(playlist), nil
}

// RemoveVideo drops videoID, failing with ErrConflict when absent.
func (p *Playlists) RemoveVideo(_ context.Context, id, videoID string) (models.Playlist, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	playlist, ok := p.s.playlists[id]
	if !ok {
		return models.Playlist{}, ErrNotFound
	}
	remaining := without(playlist.VideoIDs, videoID)
	if len(remaining) == len(playlist.VideoIDs) {
		return models.Playlist{}, ErrConflict
	}
	playlist.VideoIDs = remaining
	playlist.UpdatedAt = p.s.now()
	p.s.playlists[id] = playlist
	return clonePlaylist(playlist), nil
}

// Subscriptions is the subscription table.
type Subscriptions struct{ s *Store }

func (sub *Subscriptions) Create(_ context.Context, subscription models.Subscription) error {
	sub.s.mu.Lock()
	defer sub.s.mu.Unlock()

	for _, existing := range sub.s.subscriptions {
		if existing.SubscriberID == subscription.SubscriberID && existing.ChannelID == subscription.ChannelID {
			return ErrConflict
		}
	}
	sub.s.subscriptions = append(sub.s.subscriptions, subscription)
	return nil
}

func (sub *Subscriptions) ListByChannel(_ context.Context, channelID string) ([]models.Subscription, error) {
	return sub.filter(func(s models.Subscription) bool { return s.ChannelID == channelID }), nil
}

func (sub *Subscriptions) ListBySubscriber(_ context.Context, subscriberID string) ([]models.Subscription, error) {
	return sub.filter(func(s models.Subscription) bool { return s.SubscriberID == subscriberID }), nil
}

func (sub *Subscriptions) filter(keep func(models.Subscription) bool) []models.Subscription {
	sub.s.mu.RLock()
	defer sub.s.mu.RUnlock()

	out := []models.Subscription{}
	for _, s := range sub.s.subscriptions {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

// Likes is the like table.
type Likes struct{ s *Store }

// Toggle removes the like of like.LikedBy on like.Target when it exists and
// records like otherwise. It reports whether the like was added.
func (l *Likes) Toggle(_ context.Context, like models.Like) (bool, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	for i, existing := range l.s.likes {
		if existing.LikedBy == like.LikedBy && existing.Target == like.Target {
			l.s.likes = append(l.s.likes[:i:i], l.s.likes[i+1:]...)
			return false, nil
		}
	}
	l.s.likes = append(l.s.likes, like)
	return true, nil
}

func (l *Likes) ListByUser(_ context.Context, userID string) ([]models.Like, error) {
	return l.filter(func(like models.Like) bool { return like.LikedBy == userID }), nil
}

func (l *Likes) ListByTarget(_ context.Context, target models.LikeTarget) ([]models.Like, error) {
	return l.filter(func(like models.Like) bool { return like.Target == target }), nil
}

func (l *Likes) filter(keep func(models.Like) bool) []models.Like {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	out := []models.Like{}
	for _, like := range l.s.likes {
		if keep(like) {
			out = append(out, like)
		}
	}
	return out
}

func cloneUser(u models.User) models.User {
	if u.WatchHistory != nil {
		u.WatchHistory = append([]string{}, u.WatchHistory...)
	}
	return u
}

func clonePlaylist(p models.Playlist) models.Playlist {
	p.VideoIDs = append([]string{}, p.VideoIDs...)
	return p
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
