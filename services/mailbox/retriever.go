package mailbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	goimap "github.com/emersion/go-imap"

	"github.com/inboxkeep/mailclerk/config"
	"github.com/inboxkeep/mailclerk/interfaces"
	"github.com/inboxkeep/mailclerk/internal/enum"
	"github.com/inboxkeep/mailclerk/internal/errors"
	"github.com/inboxkeep/mailclerk/internal/logger"
	"github.com/inboxkeep/mailclerk/internal/models"
	"github.com/inboxkeep/mailclerk/internal/repository"
	"github.com/inboxkeep/mailclerk/services/session"
)

// largeMessageThreshold is the average message size above which a batch is
// re-split into smaller sub-batches before the body fetch.
const largeMessageThreshold = 100_000

// probeBatchSize is the batch size above which a size probe round-trip is
// worth its cost.
const probeBatchSize = 20

type FetchOptions struct {
	Folder    string
	Limit     int
	Criteria  string
	BatchSize int
}

// Retriever fetches message batches over an established session.
type Retriever struct {
	cfg          *config.FetchConfig
	log          logger.Logger
	sessions     *session.Manager
	folders      *FolderService
	activityRepo repository.ActivityRepository
}

func NewRetriever(
	cfg *config.FetchConfig,
	log logger.Logger,
	sessions *session.Manager,
	folders *FolderService,
	activityRepo repository.ActivityRepository,
) *Retriever {
	return &Retriever{
		cfg:          cfg,
		log:          log,
		sessions:     sessions,
		folders:      folders,
		activityRepo: activityRepo,
	}
}

// FetchEmails retrieves up to opts.Limit of the newest messages matching the
// criteria. Bodies are fetched with a partial peek so oversized messages
// cannot blow up memory; batches of unusually large messages are re-split
// after a size probe. A message that fails to parse is skipped, a batch that
// fails to fetch aborts the whole run.
func (r *Retriever) FetchEmails(ctx context.Context, sessionID string, opts FetchOptions) ([]*models.EmailMessage, error) {
	sess, err := r.sessions.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Client == nil || sess.State != enum.SessionConnected {
		return nil, errors.ErrNoConnection
	}

	if opts.Folder != "" {
		if _, err := r.folders.SelectFolder(sessionID, opts.Folder, true); err != nil {
			return nil, err
		}
	} else if sess.SelectedFolder == "" {
		return nil, errors.ErrNoFolderSelected
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = r.cfg.DefaultBatchSize
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = batchSize
	}

	criteria, err := buildSearchCriteria(opts.Criteria)
	if err != nil {
		return nil, err
	}

	ids, err := sess.Client.Search(criteria)
	if err != nil {
		return nil, errors.NewSessionError(err, "searching folder %q", sess.SelectedFolder)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	// Search results come back in ascending order; the tail holds the newest.
	if len(ids) > limit {
		ids = ids[len(ids)-limit:]
	}

	headerSection, textSection := bodySections(r.cfg.MaxBodySize)
	items := []goimap.FetchItem{
		headerSection.FetchItem(),
		textSection.FetchItem(),
		goimap.FetchFlags,
		goimap.FetchInternalDate,
		goimap.FetchRFC822Size,
		goimap.FetchUid,
	}

	emails := make([]*models.EmailMessage, 0, len(ids))
	for _, chunk := range chunkIDs(ids, batchSize) {
		for _, batch := range r.splitLargeBatch(sess.Client, chunk, batchSize) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			seqSet := new(goimap.SeqSet)
			seqSet.AddNum(batch...)

			messages, err := sess.Client.Fetch(seqSet, items)
			if err != nil {
				return nil, errors.NewSessionError(err, "fetching batch of %d messages", len(batch))
			}

			for _, msg := range messages {
				email, err := parseMessage(msg, headerSection, textSection, r.cfg.MaxBodySize)
				if err != nil {
					r.log.Warnf("skipping unparseable message %d: %v", msg.SeqNum, err)
					continue
				}
				emails = append(emails, email)
			}
		}
	}

	sess.UpdateActivity()
	r.audit(ctx, sess.Email, fmt.Sprintf("fetched %d messages from %q", len(emails), sess.SelectedFolder))
	return emails, nil
}

// splitLargeBatch probes the RFC822 sizes of a batch larger than
// probeBatchSize and, when the average exceeds largeMessageThreshold, splits
// it into sub-batches of batchSize/5 (never below 10). Small batches and
// failed probes pass through unchanged.
func (r *Retriever) splitLargeBatch(client interfaces.IMAPClient, batch []uint32, batchSize int) [][]uint32 {
	if len(batch) <= probeBatchSize {
		return [][]uint32{batch}
	}
	avg := r.probeAverageSize(client, batch)
	if avg <= largeMessageThreshold {
		return [][]uint32{batch}
	}
	smaller := batchSize / 5
	if smaller < 10 {
		smaller = 10
	}
	r.log.Infof("average message size %d bytes in batch of %d, re-splitting into batches of %d",
		avg, len(batch), smaller)
	return chunkIDs(batch, smaller)
}

// probeAverageSize fetches only RFC822.SIZE for the candidate messages and
// returns the mean, or 0 when the probe fails. A failed probe just means the
// original batch size is used.
func (r *Retriever) probeAverageSize(client interfaces.IMAPClient, ids []uint32) uint32 {
	seqSet := new(goimap.SeqSet)
	seqSet.AddNum(ids...)

	messages, err := client.Fetch(seqSet, []goimap.FetchItem{goimap.FetchRFC822Size})
	if err != nil || len(messages) == 0 {
		return 0
	}

	var total uint64
	for _, msg := range messages {
		total += uint64(msg.Size)
	}
	return uint32(total / uint64(len(messages)))
}

func (r *Retriever) audit(ctx context.Context, email, detail string) {
	if r.activityRepo == nil {
		return
	}
	event := models.NewActivityEvent(email, enum.ActivityFetchRun, detail)
	if err := r.activityRepo.SaveEvent(ctx, event); err != nil {
		r.log.Warnf("failed to save activity event: %v", err)
	}
}

// imapDateLayout is the RFC 3501 date form, e.g. "02-Jan-2006".
const imapDateLayout = "2-Jan-2006"

var criteriaFlags = map[string]struct {
	flag    string
	without bool
}{
	"SEEN":       {flag: goimap.SeenFlag},
	"UNSEEN":     {flag: goimap.SeenFlag, without: true},
	"FLAGGED":    {flag: goimap.FlaggedFlag},
	"UNFLAGGED":  {flag: goimap.FlaggedFlag, without: true},
	"ANSWERED":   {flag: goimap.AnsweredFlag},
	"UNANSWERED": {flag: goimap.AnsweredFlag, without: true},
	"DRAFT":      {flag: goimap.DraftFlag},
	"UNDRAFT":    {flag: goimap.DraftFlag, without: true},
	"DELETED":    {flag: goimap.DeletedFlag},
	"UNDELETED":  {flag: goimap.DeletedFlag, without: true},
	"RECENT":     {flag: goimap.RecentFlag},
}

// buildSearchCriteria translates a caller-supplied search string into typed
// criteria. Flag keywords and SINCE/BEFORE/ON date terms may be combined,
// e.g. "UNSEEN SINCE 01-Aug-2026".
func buildSearchCriteria(criteria string) (*goimap.SearchCriteria, error) {
	sc := goimap.NewSearchCriteria()
	fields := strings.Fields(strings.TrimSpace(criteria))
	for i := 0; i < len(fields); i++ {
		keyword := strings.ToUpper(fields[i])
		if spec, ok := criteriaFlags[keyword]; ok {
			if spec.without {
				sc.WithoutFlags = append(sc.WithoutFlags, spec.flag)
			} else {
				sc.WithFlags = append(sc.WithFlags, spec.flag)
			}
			continue
		}
		switch keyword {
		case "ALL":
		case "SINCE", "BEFORE", "ON":
			i++
			if i >= len(fields) {
				return nil, errors.NewValidationError("search criterion %s requires a date", keyword)
			}
			date, err := time.Parse(imapDateLayout, fields[i])
			if err != nil {
				return nil, errors.NewValidationError("invalid date %q for %s, expected DD-Mon-YYYY", fields[i], keyword)
			}
			switch keyword {
			case "SINCE":
				sc.Since = date
			case "BEFORE":
				sc.Before = date
			case "ON":
				sc.Since = date
				sc.Before = date.AddDate(0, 0, 1)
			}
		default:
			return nil, errors.NewValidationError("unsupported search criteria %q", criteria)
		}
	}
	return sc, nil
}

func chunkIDs(ids []uint32, size int) [][]uint32 {
	var chunks [][]uint32
	for len(ids) > size {
		chunks = append(chunks, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}

func bodySections(maxBodySize int) (*goimap.BodySectionName, *goimap.BodySectionName) {
	headerSection := &goimap.BodySectionName{
		BodyPartName: goimap.BodyPartName{Specifier: goimap.HeaderSpecifier},
		Peek:         true,
	}
	textSection := &goimap.BodySectionName{
		BodyPartName: goimap.BodyPartName{Specifier: goimap.TextSpecifier},
		Peek:         true,
		Partial:      []int{0, maxBodySize},
	}
	return headerSection, textSection
}
