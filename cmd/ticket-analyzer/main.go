package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/robfig/cron/v3"

	"github.com/jcastello/ticket-analyzer/internal/extract"
	"github.com/jcastello/ticket-analyzer/internal/mail"
	"github.com/jcastello/ticket-analyzer/internal/report"
	"github.com/jcastello/ticket-analyzer/internal/ticket"
)

const version = "1.2.0"

func main() {
	// Settings may come from flags, TICKETS_* env vars or a local .env.
	_ = godotenv.Load()

	rootFlags := ff.NewFlagSet("ticket-analyzer")
	var (
		dbPath       = rootFlags.StringLong("db", "tickets.db", "Database file path")
		inboxDir     = rootFlags.StringLong("inbox", "./tickets", "Directory with incoming ticket PDFs")
		processedDir = rootFlags.StringLong("processed", "./tickets-processed", "Directory for imported PDFs")
		errorDir     = rootFlags.StringLong("errors", "./tickets-error", "Directory for PDFs needing manual review")
	)

	openService := func() (*ticket.Service, *ticket.BoltDB, error) {
		db, err := ticket.NewBoltDB(*dbPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		documents, err := ticket.NewLocalDocuments(*inboxDir, *processedDir, *errorDir)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("preparing directories: %w", err)
		}
		return ticket.NewService(db, extract.NewPDF(), documents), db, nil
	}

	// retrieve
	retrieveFlags := ff.NewFlagSet("retrieve").SetParent(rootFlags)
	var (
		imapAddr   = retrieveFlags.StringLong("imap-addr", "imap.gmail.com:993", "IMAP server address (TLS)")
		imapFolder = retrieveFlags.StringLong("imap-folder", "[Google Mail]/Todos", "IMAP folder to search")
		email      = retrieveFlags.StringLong("email", "", "Mailbox address")
		password   = retrieveFlags.StringLong("password", "", "Mailbox app password")
		sender     = retrieveFlags.StringLong("sender", "ticket_digital@mail.mercadona.com", "Official ticket sender")
		days       = retrieveFlags.IntLong("days", 0, "Only search the last N days (0 = all)")
	)

	retrieve := func() error {
		if *email == "" || *password == "" {
			return fmt.Errorf("email and password are required (flags or TICKETS_EMAIL / TICKETS_PASSWORD)")
		}
		retriever := mail.NewRetriever(mail.Config{
			Addr:     *imapAddr,
			Username: *email,
			Password: *password,
			Folder:   *imapFolder,
			Sender:   *sender,
			SaveDir:  *inboxDir,
		})
		_, err := retriever.Download(*days)
		return err
	}

	retrieveCmd := &ff.Command{
		Name:      "retrieve",
		Usage:     "ticket-analyzer retrieve [FLAGS]",
		ShortHelp: "Download ticket PDFs from the mailbox into the inbox",
		Flags:     retrieveFlags,
		Exec: func(ctx context.Context, args []string) error {
			return retrieve()
		},
	}

	// import
	importCmd := &ff.Command{
		Name:      "import",
		Usage:     "ticket-analyzer import [PATH]",
		ShortHelp: "Parse and store one ticket PDF, or every PDF in the inbox",
		Flags:     ff.NewFlagSet("import").SetParent(rootFlags),
		Exec: func(ctx context.Context, args []string) error {
			service, db, err := openService()
			if err != nil {
				return err
			}
			defer db.Close()

			if len(args) > 0 {
				_, err := service.ImportDocument(args[0])
				if errors.Is(err, ticket.ErrDuplicateTicket) {
					return nil
				}
				return err
			}

			summary, err := service.ImportAll()
			if err != nil {
				return err
			}
			slog.Info("Import finished",
				"imported", summary.Imported,
				"duplicates", summary.Duplicates,
				"failed", summary.Failed,
			)
			return nil
		},
	}

	// categorize
	categorizeCmd := &ff.Command{
		Name:      "categorize",
		Usage:     "ticket-analyzer categorize",
		ShortHelp: "Assign spending families to uncategorized products by keyword",
		Flags:     ff.NewFlagSet("categorize").SetParent(rootFlags),
		Exec: func(ctx context.Context, args []string) error {
			service, db, err := openService()
			if err != nil {
				return err
			}
			defer db.Close()

			assigned, err := service.AutoCategorize()
			if err != nil {
				return err
			}
			slog.Info("Categorization finished", "assigned", assigned)
			return nil
		},
	}

	// report
	reportFlags := ff.NewFlagSet("report").SetParent(rootFlags)
	var (
		reportOut = reportFlags.StringLong("out", "report.html", "Output file for the HTML report")
		csvOut    = reportFlags.StringLong("csv", "", "Also export every ticket line as CSV to this file")
	)

	writeReport := func() error {
		db, err := ticket.NewBoltDB(*dbPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		rep := report.New(db)

		f, err := os.Create(*reportOut)
		if err != nil {
			return fmt.Errorf("creating report file: %w", err)
		}
		defer f.Close()
		if err := rep.Render(f); err != nil {
			return err
		}
		slog.Info("Report written", "path", *reportOut)

		if *csvOut != "" {
			cf, err := os.Create(*csvOut)
			if err != nil {
				return fmt.Errorf("creating csv file: %w", err)
			}
			defer cf.Close()
			if err := rep.WriteCSV(cf); err != nil {
				return err
			}
			slog.Info("CSV written", "path", *csvOut)
		}
		return nil
	}

	reportCmd := &ff.Command{
		Name:      "report",
		Usage:     "ticket-analyzer report [FLAGS]",
		ShortHelp: "Write the HTML spending report",
		Flags:     reportFlags,
		Exec: func(ctx context.Context, args []string) error {
			return writeReport()
		},
	}

	// run
	runFlags := ff.NewFlagSet("run").SetParent(retrieveFlags)
	var (
		schedule  = runFlags.StringLong("schedule", "", "Cron expression to keep running on (empty = run once)")
		runOut    = runFlags.StringLong("out", "report.html", "Output file for the HTML report")
		skipFetch = runFlags.BoolLong("no-retrieve", "Skip the mailbox download step")
	)

	runOnce := func() error {
		if *skipFetch || *email == "" {
			slog.Info("Skipping mailbox download")
		} else if err := retrieve(); err != nil {
			return err
		}

		service, db, err := openService()
		if err != nil {
			return err
		}
		defer db.Close()

		summary, err := service.ImportAll()
		if err != nil {
			return err
		}
		slog.Info("Import finished",
			"imported", summary.Imported,
			"duplicates", summary.Duplicates,
			"failed", summary.Failed,
		)

		assigned, err := service.AutoCategorize()
		if err != nil {
			return err
		}
		slog.Info("Categorization finished", "assigned", assigned)

		// Regenerating the report is cheap enough to do every cycle.
		if summary.Imported > 0 || !fileExists(*runOut) {
			f, err := os.Create(*runOut)
			if err != nil {
				return fmt.Errorf("creating report file: %w", err)
			}
			defer f.Close()
			if err := report.New(db).Render(f); err != nil {
				return err
			}
			slog.Info("Report written", "path", *runOut)
		}
		return nil
	}

	runCmd := &ff.Command{
		Name:      "run",
		Usage:     "ticket-analyzer run [FLAGS]",
		ShortHelp: "Retrieve, import, categorize and report in one go",
		Flags:     runFlags,
		Exec: func(ctx context.Context, args []string) error {
			if err := runOnce(); err != nil {
				return err
			}
			if *schedule == "" {
				return nil
			}

			c := cron.New()
			if _, err := c.AddFunc(*schedule, func() {
				if err := runOnce(); err != nil {
					slog.Error("Scheduled run failed", "error", err)
				}
			}); err != nil {
				return fmt.Errorf("invalid schedule %q: %w", *schedule, err)
			}
			c.Start()
			slog.Info("Scheduler started", "schedule", *schedule)

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			<-sigChan

			slog.Info("Shutting down...")
			c.Stop()
			return nil
		},
	}

	// serve
	serveFlags := ff.NewFlagSet("serve").SetParent(rootFlags)
	var (
		port     = serveFlags.IntLong("port", 8080, "HTTP server port")
		authUser = serveFlags.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass = serveFlags.StringLong("auth-pass", "", "Basic auth password (optional)")
	)

	serveCmd := &ff.Command{
		Name:      "serve",
		Usage:     "ticket-analyzer serve [FLAGS]",
		ShortHelp: "Serve the stored tickets and the report over HTTP",
		Flags:     serveFlags,
		Exec: func(ctx context.Context, args []string) error {
			service, db, err := openService()
			if err != nil {
				return err
			}
			defer db.Close()

			basicAuth := ticket.BasicAuth{
				Username: *authUser,
				Password: *authPass,
			}
			server := ticket.NewServer(service, report.New(db), basicAuth)

			addr := fmt.Sprintf(":%d", *port)
			go func() {
				if err := server.Start(addr); err != nil {
					slog.Error("Server error", "error", err)
					os.Exit(1)
				}
			}()

			slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
			if *authUser != "" || *authPass != "" {
				slog.Info("Basic auth enabled", "user", *authUser)
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			<-sigChan

			slog.Info("Shutting down...")
			return nil
		},
	}

	versionCmd := &ff.Command{
		Name:      "version",
		Usage:     "ticket-analyzer version",
		ShortHelp: "Show version information",
		Flags:     ff.NewFlagSet("version").SetParent(rootFlags),
		Exec: func(ctx context.Context, args []string) error {
			fmt.Println(version)
			return nil
		},
	}

	root := &ff.Command{
		Name:      "ticket-analyzer",
		Usage:     "ticket-analyzer [FLAGS] SUBCOMMAND ...",
		ShortHelp: "Import supermarket ticket PDFs into a local spending database",
		Flags:     rootFlags,
		Subcommands: []*ff.Command{
			retrieveCmd, importCmd, categorizeCmd, reportCmd, runCmd, serveCmd, versionCmd,
		},
		Exec: func(ctx context.Context, args []string) error {
			return ff.ErrHelp
		},
	}

	err := root.ParseAndRun(context.Background(), os.Args[1:], ff.WithEnvVarPrefix("TICKETS"))
	switch {
	case errors.Is(err, ff.ErrHelp):
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(root))
	case err != nil:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
