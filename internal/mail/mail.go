// Package mail downloads ticket PDF attachments from an IMAP mailbox.
package mail

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	gomail "github.com/emersion/go-message/mail"
)

// ticketAttachment matches the attachment names tickets arrive under,
// e.g. "20260221 Mercadona 42,26 €.pdf".
var ticketAttachment = regexp.MustCompile(`(?i)\d{8}.*Mercadona.*\.pdf`)

// Config holds the mailbox connection settings.
type Config struct {
	Addr     string // host:port, TLS
	Username string
	Password string
	// Folder is the IMAP folder searched. Gmail names it by account
	// language: "[Google Mail]/Todos" or "[Gmail]/All Mail".
	Folder string
	// Sender is the official ticket sender address.
	Sender string
	// SaveDir is where downloaded PDFs are written.
	SaveDir string
}

// Retriever downloads ticket attachments into the inbox directory.
type Retriever struct {
	cfg Config
}

// NewRetriever creates a Retriever for the given mailbox.
func NewRetriever(cfg Config) *Retriever {
	return &Retriever{cfg: cfg}
}

// Download fetches ticket PDF attachments and writes them to the save
// directory, skipping files already present. A positive days value limits
// the search window; zero means the whole mailbox. Returns the number of
// new files written.
//
// Messages are searched both by the official sender and without a sender
// filter, so tickets forwarded by other people are picked up too; the
// attachment name filter keeps everything else out.
func (r *Retriever) Download(days int) (int, error) {
	if err := os.MkdirAll(r.cfg.SaveDir, 0755); err != nil {
		return 0, fmt.Errorf("creating save directory: %w", err)
	}

	client, err := imapclient.DialTLS(r.cfg.Addr, nil)
	if err != nil {
		return 0, fmt.Errorf("connecting to %s: %w", r.cfg.Addr, err)
	}
	defer client.Close()

	if err := client.Login(r.cfg.Username, r.cfg.Password).Wait(); err != nil {
		return 0, fmt.Errorf("logging in: %w", err)
	}
	defer client.Logout()

	if _, err := client.Select(r.cfg.Folder, nil).Wait(); err != nil {
		return 0, fmt.Errorf("selecting folder %q: %w", r.cfg.Folder, err)
	}

	uids, err := r.searchUIDs(client, days)
	if err != nil {
		return 0, err
	}
	slog.Info("Messages to inspect", "count", len(uids))
	if len(uids) == 0 {
		return 0, nil
	}

	fetchOptions := &imap.FetchOptions{
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{{}},
	}
	messages, err := client.Fetch(imap.UIDSetNum(uids...), fetchOptions).Collect()
	if err != nil {
		return 0, fmt.Errorf("fetching messages: %w", err)
	}

	saved := 0
	for _, msg := range messages {
		body := msg.FindBodySection(&imap.FetchItemBodySection{})
		if body == nil {
			continue
		}
		var date time.Time
		if msg.Envelope != nil {
			date = msg.Envelope.Date
		}
		n, err := r.saveAttachments(body, date)
		if err != nil {
			slog.Warn("Failed to read message", "error", err)
			continue
		}
		saved += n
	}

	slog.Info("Download finished", "new_files", saved)
	return saved, nil
}

// searchUIDs runs both search criteria and unions the results, preserving
// mailbox order.
func (r *Retriever) searchUIDs(client *imapclient.Client, days int) ([]imap.UID, error) {
	var since time.Time
	if days > 0 {
		since = time.Now().AddDate(0, 0, -days)
		slog.Info("Searching recent messages", "days", days, "since", since.Format("2006-01-02"))
	} else {
		slog.Info("Searching all messages")
	}

	criteria := []*imap.SearchCriteria{
		{
			Since:  since,
			Header: []imap.SearchCriteriaHeaderField{{Key: "From", Value: r.cfg.Sender}},
		},
		{Since: since},
	}

	seen := make(map[imap.UID]bool)
	var uids []imap.UID
	for _, c := range criteria {
		data, err := client.UIDSearch(c, nil).Wait()
		if err != nil {
			return nil, fmt.Errorf("searching mailbox: %w", err)
		}
		for _, uid := range data.AllUIDs() {
			if seen[uid] {
				continue
			}
			seen[uid] = true
			uids = append(uids, uid)
		}
	}
	return uids, nil
}

// saveAttachments walks one message's MIME parts and writes every
// ticket-shaped PDF attachment to the save directory.
func (r *Retriever) saveAttachments(body []byte, date time.Time) (int, error) {
	mr, err := gomail.CreateReader(bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("reading message: %w", err)
	}

	saved := 0
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return saved, fmt.Errorf("reading message part: %w", err)
		}

		header, ok := part.Header.(*gomail.AttachmentHeader)
		if !ok {
			continue
		}
		filename, err := header.Filename()
		if err != nil || filename == "" {
			continue
		}
		if !ticketAttachment.MatchString(filename) {
			continue
		}

		filename = cleanFilename(filename)
		if !date.IsZero() {
			filename = date.Format("Mon_02_Jan_2006") + "_" + filename
		}
		path := filepath.Join(r.cfg.SaveDir, filename)

		if _, err := os.Stat(path); err == nil {
			slog.Info("Already downloaded, skipping", "file", filename)
			continue
		}

		data, err := io.ReadAll(part.Body)
		if err != nil {
			return saved, fmt.Errorf("reading attachment: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return saved, fmt.Errorf("writing attachment: %w", err)
		}
		slog.Info("Saved", "file", filename)
		saved++
	}
	return saved, nil
}

// cleanFilename keeps only filesystem-safe characters.
func cleanFilename(name string) string {
	var b strings.Builder
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case strings.ContainsRune("._- ", c):
			b.WriteRune(c)
		}
	}
	return strings.TrimSpace(b.String())
}
