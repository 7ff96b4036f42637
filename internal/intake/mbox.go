package intake

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/emersion/go-mbox"
)

// ReadMbox splits an mbox archive into messages. A message is identified by
// its Message-ID header, else by its position in the archive. Messages
// marked deleted (Status: D) are left out.
func ReadMbox(r io.Reader) ([]Message, error) {
	reader := mbox.NewReader(r)

	var msgs []Message
	for i := 1; ; i++ {
		mr, err := reader.NextMessage()
		if err == io.EOF {
			return msgs, nil
		}
		if err != nil {
			return msgs, fmt.Errorf("failed to read mbox message %d: %w", i, err)
		}

		raw, err := io.ReadAll(mr)
		if err != nil {
			return msgs, fmt.Errorf("failed to read mbox message %d: %w", i, err)
		}

		id := fmt.Sprintf("mbox-%d", i)
		if hdr, err := mail.ReadMessage(bytes.NewReader(raw)); err == nil {
			if hdr.Header.Get("Status") == "D" {
				slog.Debug("skipping deleted mbox message", "index", i)
				continue
			}
			if mid := strings.TrimSpace(hdr.Header.Get("Message-Id")); mid != "" {
				id = mid
			}
		}
		msgs = append(msgs, Message{ID: id, Raw: raw})
	}
}
