package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"syscall"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/inboxkeep/mailclerk/config"
	"github.com/inboxkeep/mailclerk/internal/logger"
	"github.com/inboxkeep/mailclerk/internal/models"
	"github.com/inboxkeep/mailclerk/internal/repository"
	"github.com/inboxkeep/mailclerk/services/imap"
	"github.com/inboxkeep/mailclerk/services/mailbox"
	"github.com/inboxkeep/mailclerk/services/secrets"
	"github.com/inboxkeep/mailclerk/services/session"
)

type app struct {
	cfg          *config.Config
	log          logger.Logger
	repositories *repository.Repositories
	sessions     *session.Manager
	folders      *mailbox.FolderService
	retriever    *mailbox.Retriever
	reaper       *session.Reaper
}

func main() {
	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Config initialization failed: %v", err)
	}

	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()
	defer appLogger.Sync()

	repositories, err := repository.InitRepositories(cfg.AppConfig.DatabasePath)
	if err != nil {
		appLogger.Fatalf("Database initialization failed: %v", err)
	}
	defer repositories.Close()

	rateLimiter := session.NewRateLimiter(cfg.RateLimitConfig, appLogger)
	sessions := session.NewManager(cfg, appLogger, imap.NewDialer(), rateLimiter, repositories.ActivityRepository)
	folders := mailbox.NewFolderService(cfg.FetchConfig, appLogger, sessions)
	retriever := mailbox.NewRetriever(cfg.FetchConfig, appLogger, sessions, folders, repositories.ActivityRepository)
	reaper := session.NewReaper(cfg.SessionConfig, appLogger, sessions)

	if err := reaper.Start(); err != nil {
		appLogger.Fatalf("Reaper initialization failed: %v", err)
	}
	defer reaper.Stop()

	a := &app{
		cfg:          cfg,
		log:          appLogger,
		repositories: repositories,
		sessions:     sessions,
		folders:      folders,
		retriever:    retriever,
		reaper:       reaper,
	}

	cliApp := &cli.App{
		Name:  "mailclerk",
		Usage: "manage IMAP mailbox sessions and retrieve email",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "verify credentials against the IMAP server",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.BoolFlag{Name: "save", Usage: "store the password in the system keychain"},
				},
				Action: a.loginCommand,
			},
			{
				Name:  "folders",
				Usage: "list mailbox folders",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.BoolFlag{Name: "refresh", Usage: "bypass the folder cache"},
				},
				Action: a.foldersCommand,
			},
			{
				Name:  "fetch",
				Usage: "fetch recent messages from a folder",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "folder", Value: "INBOX"},
					&cli.IntFlag{Name: "limit", Value: 50},
					&cli.StringFlag{Name: "criteria", Value: "ALL", Usage: "ALL, SEEN or UNSEEN"},
					&cli.IntFlag{Name: "batch-size"},
				},
				Action: a.fetchCommand,
			},
			{
				Name:  "status",
				Usage: "show folder counts without selecting the folder",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "folder", Value: "INBOX"},
				},
				Action: a.statusCommand,
			},
			{
				Name:  "logout",
				Usage: "remove a saved password from the system keychain",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
				},
				Action: a.logoutCommand,
			},
			{
				Name:   "activity",
				Usage:  "show recent account activity",
				Action: a.activityCommand,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		appLogger.Fatalf("%v", err)
	}
}

func (a *app) loginCommand(c *cli.Context) error {
	email := c.String("email")

	password, err := promptPassword(email)
	if err != nil {
		return err
	}

	cred, err := models.NewCredential(email, password)
	if err != nil {
		return err
	}

	sess, err := a.sessions.Authenticate(c.Context, cred)
	if err != nil {
		return err
	}
	defer a.sessions.Disconnect(c.Context, sess.ID)

	fmt.Printf("Authenticated %s (session %s, %d retries)\n", email, sess.ID, sess.RetryCount)

	if c.Bool("save") {
		store, err := secrets.NewKeyringStore()
		if err != nil {
			return err
		}
		if err := store.Store(email, password); err != nil {
			return err
		}
		fmt.Println("Password saved to system keychain")
	}
	return nil
}

func (a *app) foldersCommand(c *cli.Context) error {
	sess, cleanup, err := a.connect(c.Context, c.String("email"))
	if err != nil {
		return err
	}
	defer cleanup()

	folders, err := a.folders.ListFolders(sess.ID, c.Bool("refresh"))
	if err != nil {
		return err
	}

	for _, folder := range folders {
		marker := " "
		if !folder.Selectable {
			marker = "-"
		}
		fmt.Printf("%s %-10s %s\n", marker, folder.Type, folder.DisplayName)
	}
	return nil
}

func (a *app) fetchCommand(c *cli.Context) error {
	sess, cleanup, err := a.connect(c.Context, c.String("email"))
	if err != nil {
		return err
	}
	defer cleanup()

	emails, err := a.retriever.FetchEmails(c.Context, sess.ID, mailbox.FetchOptions{
		Folder:    c.String("folder"),
		Limit:     c.Int("limit"),
		Criteria:  c.String("criteria"),
		BatchSize: c.Int("batch-size"),
	})
	if err != nil {
		return err
	}

	for _, email := range emails {
		unread := " "
		if email.Unread {
			unread = "*"
		}
		fmt.Printf("%s %-30s %-40s %s\n",
			unread, email.DisplaySender(), email.Subject, email.ReceivedAt.Format("2006-01-02 15:04"))
	}
	fmt.Printf("%d messages\n", len(emails))
	return nil
}

func (a *app) statusCommand(c *cli.Context) error {
	sess, cleanup, err := a.connect(c.Context, c.String("email"))
	if err != nil {
		return err
	}
	defer cleanup()

	status, err := a.folders.FolderStatus(sess.ID, c.String("folder"))
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d messages, %d unread\n", c.String("folder"), status.MessageCount, status.UnreadCount)
	return nil
}

func (a *app) logoutCommand(c *cli.Context) error {
	store, err := secrets.NewKeyringStore()
	if err != nil {
		return err
	}
	if err := store.Delete(c.String("email")); err != nil {
		return err
	}
	fmt.Println("Password removed from system keychain")
	return nil
}

func (a *app) activityCommand(c *cli.Context) error {
	events, err := a.repositories.ActivityRepository.RecentEvents(c.Context, 50)
	if err != nil {
		return err
	}
	for _, event := range events {
		fmt.Printf("%s %-14s %-14s %s\n",
			event.CreatedAt.Format("2006-01-02 15:04:05"), event.Kind, event.EmailHash, event.Detail)
	}
	return nil
}

// connect authenticates with the saved or prompted password and returns the
// session plus a cleanup func that disconnects it.
func (a *app) connect(ctx context.Context, email string) (*models.Session, func(), error) {
	password, err := savedOrPromptedPassword(email)
	if err != nil {
		return nil, nil, err
	}

	cred, err := models.NewCredential(email, password)
	if err != nil {
		return nil, nil, err
	}

	sess, err := a.sessions.Authenticate(ctx, cred)
	if err != nil {
		return nil, nil, err
	}
	return sess, func() { a.sessions.Disconnect(ctx, sess.ID) }, nil
}

func savedOrPromptedPassword(email string) (string, error) {
	if store, err := secrets.NewKeyringStore(); err == nil {
		if password, err := store.Get(email); err == nil && password != "" {
			return password, nil
		}
	}
	return promptPassword(email)
}

func promptPassword(email string) (string, error) {
	fmt.Printf("Password for %s: ", email)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(raw), nil
}
