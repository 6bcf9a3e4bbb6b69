package mailbox

import (
	"strings"

	goimap "github.com/emersion/go-imap"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/inboxkeep/mailclerk/config"
	"github.com/inboxkeep/mailclerk/internal/enum"
	"github.com/inboxkeep/mailclerk/internal/errors"
	"github.com/inboxkeep/mailclerk/internal/logger"
	"github.com/inboxkeep/mailclerk/internal/models"
	"github.com/inboxkeep/mailclerk/services/session"
)

const gmailPrefix = "[Gmail]/"

// FolderService lists and selects IMAP folders. Listings are cached per
// session with a TTL so repeated folder lookups don't hammer the server.
type FolderService struct {
	cfg      *config.FetchConfig
	log      logger.Logger
	sessions *session.Manager
	cache    *expirable.LRU[string, []models.Folder]
}

func NewFolderService(cfg *config.FetchConfig, log logger.Logger, sessions *session.Manager) *FolderService {
	return &FolderService{
		cfg:      cfg,
		log:      log,
		sessions: sessions,
		cache:    expirable.NewLRU[string, []models.Folder](cfg.FolderCacheSize, nil, cfg.FolderCacheTTL),
	}
}

// ListFolders returns the session's folders, served from cache unless the
// entry has expired or forceRefresh is set.
func (s *FolderService) ListFolders(sessionID string, forceRefresh bool) ([]models.Folder, error) {
	if !forceRefresh {
		if folders, ok := s.cache.Get(sessionID); ok {
			return folders, nil
		}
	}

	sess, err := s.sessions.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Client == nil || sess.State != enum.SessionConnected {
		return nil, errors.ErrNoConnection
	}

	infos, err := sess.Client.ListFolders()
	if err != nil {
		return nil, errors.NewSessionError(err, "listing folders for session %s", sessionID)
	}

	folders := make([]models.Folder, 0, len(infos))
	for _, info := range infos {
		folders = append(folders, classifyFolder(info))
	}

	sess.UpdateActivity()
	s.cache.Add(sessionID, folders)
	s.log.Infof("listed %d folders for session %s", len(folders), sessionID)
	return folders, nil
}

// SelectFolder opens the folder on the session's connection and records it as
// the session's current folder.
func (s *FolderService) SelectFolder(sessionID, name string, readOnly bool) (*models.FolderCounts, error) {
	sess, err := s.sessions.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Client == nil || sess.State != enum.SessionConnected {
		return nil, errors.ErrNoConnection
	}

	mbox, err := sess.Client.Select(name, readOnly)
	if err != nil {
		return nil, errors.NewSessionError(err, "selecting folder %q", name)
	}

	sess.SelectedFolder = name
	sess.UpdateActivity()

	return &models.FolderCounts{
		MessageCount: mbox.Messages,
		RecentCount:  mbox.Recent,
		UnreadCount:  mbox.Unseen,
	}, nil
}

// FolderStatus reports message counts without selecting the folder.
func (s *FolderService) FolderStatus(sessionID, name string) (*models.FolderStatus, error) {
	sess, err := s.sessions.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Client == nil || sess.State != enum.SessionConnected {
		return nil, errors.ErrNoConnection
	}

	status, err := sess.Client.Status(name, []goimap.StatusItem{
		goimap.StatusMessages,
		goimap.StatusUnseen,
	})
	if err != nil {
		return nil, errors.NewSessionError(err, "fetching status for folder %q", name)
	}

	sess.UpdateActivity()
	return &models.FolderStatus{
		MessageCount: status.Messages,
		UnreadCount:  status.Unseen,
	}, nil
}

// InvalidateCache drops the cached listing for a session, for use when the
// session disconnects.
func (s *FolderService) InvalidateCache(sessionID string) {
	s.cache.Remove(sessionID)
}

// classifyFolder derives the folder type from IMAP attributes, falling back
// to name conventions. Order matters: INBOX wins over everything, special-use
// attributes beat the Gmail prefix, and anything else is a user label.
func classifyFolder(info *goimap.MailboxInfo) models.Folder {
	folder := models.Folder{
		Name:        info.Name,
		DisplayName: strings.TrimPrefix(info.Name, gmailPrefix),
		Delimiter:   info.Delimiter,
		Selectable:  true,
		Type:        enum.FolderLabel,
	}

	for _, attr := range info.Attributes {
		if attr == goimap.NoSelectAttr {
			folder.Selectable = false
		}
	}

	switch {
	case strings.EqualFold(info.Name, "INBOX"):
		folder.Type = enum.FolderInbox
	case hasAttribute(info, goimap.SentAttr):
		folder.Type = enum.FolderSent
	case hasAttribute(info, goimap.DraftsAttr):
		folder.Type = enum.FolderDrafts
	case hasAttribute(info, goimap.TrashAttr):
		folder.Type = enum.FolderTrash
	case strings.HasPrefix(info.Name, "[Gmail]"):
		folder.Type = enum.FolderSystem
	}

	return folder
}

func hasAttribute(info *goimap.MailboxInfo, attr string) bool {
	for _, a := range info.Attributes {
		if a == attr {
			return true
		}
	}
	return false
}
