package smtp

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/shineum/mailticket/internal/extract"
	"github.com/shineum/mailticket/internal/intake"
)

// Session states, in protocol order.
const (
	stateConnected = iota
	stateGreeted
	stateAuthOK
	stateMailFrom
	stateRcptTo
)

// idleTimeout closes a session that sends nothing for this long.
const idleTimeout = 60 * time.Second

// DefaultMaxMessageSize is the SIZE advertised when none is configured.
const DefaultMaxMessageSize = 25 * 1024 * 1024

// sessionConfig is what a Session shares with its Server.
type sessionConfig struct {
	hostname       string
	auth           *Authenticator
	handler        intake.Handler
	tlsConfig      *tls.Config
	maxMessageSize int64
}

// Session runs the SMTP state machine for one client connection.
type Session struct {
	cfg    sessionConfig
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	state  int

	tlsActive bool

	mailFrom string
	rcptTo   []string
}

func newSession(conn net.Conn, cfg sessionConfig) *Session {
	if cfg.maxMessageSize <= 0 {
		cfg.maxMessageSize = DefaultMaxMessageSize
	}
	if cfg.auth == nil {
		cfg.auth = NewAuthenticator("", "")
	}
	return &Session{
		cfg:    cfg,
		conn:   conn,
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
		state:  stateConnected,
	}
}

// Handle serves the client until it quits, disconnects, idles out or ctx
// is cancelled.
func (s *Session) Handle(ctx context.Context) {
	defer s.conn.Close()

	s.reply("220 %s ESMTP mailticket", s.cfg.hostname)

	for {
		if ctx.Err() != nil {
			s.reply("421 Service shutting down")
			return
		}

		if err := s.conn.SetDeadline(time.Now().Add(idleTimeout)); err != nil {
			slog.Error("failed to set connection deadline", "error", err)
			return
		}

		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				slog.Debug("connection read error", "remote", s.conn.RemoteAddr().String(), "error", err)
			}
			return
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		cmd, arg := parseCommand(line)
		if s.dispatch(ctx, cmd, arg) {
			return
		}
	}
}

// dispatch runs one command and reports whether the session is over.
func (s *Session) dispatch(ctx context.Context, cmd, arg string) bool {
	switch cmd {
	case "EHLO", "HELO":
		s.handleHello(cmd, arg)
	case "STARTTLS":
		s.handleSTARTTLS()
	case "AUTH":
		s.handleAUTH(arg)
	case "MAIL":
		s.handleMAIL(arg)
	case "RCPT":
		s.handleRCPT(arg)
	case "DATA":
		s.handleDATA(ctx)
	case "RSET":
		s.resetTransaction()
		s.reply("250 OK")
	case "NOOP":
		s.reply("250 OK")
	case "QUIT":
		s.reply("221 Bye")
		return true
	default:
		s.reply("500 Unrecognized command")
	}
	return false
}

func (s *Session) handleHello(cmd, arg string) {
	if arg == "" {
		s.reply("501 Syntax: %s hostname", cmd)
		return
	}
	s.resetTransaction()
	if s.state < stateGreeted {
		s.state = stateGreeted
	}

	if cmd == "HELO" {
		s.reply("250 %s Hello %s", s.cfg.hostname, arg)
		return
	}

	lines := []string{fmt.Sprintf("%s Hello %s", s.cfg.hostname, arg)}
	if s.cfg.tlsConfig != nil && !s.tlsActive {
		lines = append(lines, "STARTTLS")
	}
	if s.cfg.auth.Enabled() {
		lines = append(lines, "AUTH PLAIN LOGIN")
	}
	lines = append(lines, fmt.Sprintf("SIZE %d", s.cfg.maxMessageSize), "8BITMIME")
	for i, l := range lines {
		sep := "-"
		if i == len(lines)-1 {
			sep = " "
		}
		s.reply("250%s%s", sep, l)
	}
}

func (s *Session) handleSTARTTLS() {
	if s.cfg.tlsConfig == nil {
		s.reply("454 TLS not available")
		return
	}
	if s.tlsActive {
		s.reply("454 TLS already active")
		return
	}

	s.reply("220 Ready to start TLS")

	tlsConn := tls.Server(s.conn, s.cfg.tlsConfig)
	if err := tlsConn.Handshake(); err != nil {
		slog.Error("TLS handshake failed", "error", err)
		return
	}

	// RFC 3207: the client must greet again over the secured channel.
	s.conn = tlsConn
	s.reader = bufio.NewReader(tlsConn)
	s.writer = bufio.NewWriter(tlsConn)
	s.tlsActive = true
	s.state = stateConnected
	s.resetTransaction()
}

func (s *Session) handleAUTH(arg string) {
	if s.state < stateGreeted {
		s.reply("503 Send EHLO/HELO first")
		return
	}
	if !s.cfg.auth.Enabled() {
		s.reply("503 AUTH not available")
		return
	}
	if s.state >= stateAuthOK {
		s.reply("503 Already authenticated")
		return
	}

	mechanism, initial, _ := strings.Cut(arg, " ")
	var err error
	switch strings.ToUpper(mechanism) {
	case "PLAIN":
		err = s.authPlain(initial)
	case "LOGIN":
		err = s.authLogin()
	default:
		s.reply("504 Unrecognized authentication type")
		return
	}

	switch {
	case errors.Is(err, errAuthCancelled):
		s.reply("501 Authentication cancelled")
	case errors.Is(err, errConnection):
		// Nothing can be sent; the read loop sees the broken connection.
	case err != nil:
		slog.Warn("SMTP authentication failed", "remote", s.conn.RemoteAddr().String())
		s.reply("535 Authentication failed")
	default:
		s.state = stateAuthOK
		s.reply("235 Authentication successful")
	}
}

var (
	errAuthCancelled = errors.New("authentication cancelled")
	errConnection    = errors.New("connection error")
)

// challenge sends a 334 prompt and returns the client's answer.
func (s *Session) challenge(prompt string) (string, error) {
	s.reply("334 %s", prompt)
	line, err := s.reader.ReadString('\n')
	if err != nil {
		slog.Error("failed to read AUTH response", "error", err)
		return "", errConnection
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "*" {
		return "", errAuthCancelled
	}
	return line, nil
}

func (s *Session) authPlain(initial string) error {
	encoded := initial
	if encoded == "" {
		var err error
		if encoded, err = s.challenge(""); err != nil {
			return err
		}
	}
	if encoded == "*" {
		return errAuthCancelled
	}
	return s.cfg.auth.VerifyPlain(encoded)
}

func (s *Session) authLogin() error {
	user, err := s.challenge(b64Username)
	if err != nil {
		return err
	}
	pass, err := s.challenge(b64Password)
	if err != nil {
		return err
	}
	return s.cfg.auth.VerifyLogin(user, pass)
}

// AUTH LOGIN prompts, base64 encoded.
const (
	b64Username = "VXNlcm5hbWU6"
	b64Password = "UGFzc3dvcmQ6"
)

func (s *Session) handleMAIL(arg string) {
	if s.state < stateGreeted {
		s.reply("503 Send EHLO/HELO first")
		return
	}
	if s.cfg.auth.Enabled() && s.state < stateAuthOK {
		s.reply("530 Authentication required")
		return
	}

	addr, ok := pathArgument(arg, "FROM:")
	if !ok {
		s.reply("501 Syntax: MAIL FROM:<address>")
		return
	}

	// The null reverse-path <> is valid for bounces.
	s.mailFrom = addr
	s.rcptTo = nil
	s.state = stateMailFrom
	s.reply("250 OK")
}

func (s *Session) handleRCPT(arg string) {
	if s.state < stateMailFrom {
		s.reply("503 Send MAIL FROM first")
		return
	}

	addr, ok := pathArgument(arg, "TO:")
	if !ok || addr == "" {
		s.reply("501 Syntax: RCPT TO:<address>")
		return
	}

	s.rcptTo = append(s.rcptTo, addr)
	s.state = stateRcptTo
	s.reply("250 OK")
}

func (s *Session) handleDATA(ctx context.Context) {
	if s.state < stateRcptTo {
		s.reply("503 Send RCPT TO first")
		return
	}

	s.reply("354 Start mail input; end with <CRLF>.<CRLF>")

	raw, err := readData(s.reader, s.cfg.maxMessageSize)
	if errors.Is(err, errMessageTooLarge) {
		s.reply("552 Message exceeds maximum size of %d bytes", s.cfg.maxMessageSize)
		s.resetTransaction()
		return
	}
	if err != nil {
		slog.Error("error reading DATA", "error", err)
		return
	}

	defer s.resetTransaction()

	t, err := s.cfg.handler.Handle(ctx, intake.Message{Raw: raw})
	var perr *extract.ParseError
	switch {
	case errors.As(err, &perr):
		slog.Warn("rejected message", "mail_from", s.mailFrom, "error", err)
		s.reply("554 Message could not be turned into a ticket")
	case err != nil:
		slog.Error("failed to publish ticket",
			"mail_from", s.mailFrom,
			"error", err,
		)
		s.reply("451 Temporary failure, please try again later")
	default:
		slog.Info("message accepted",
			"mail_from", s.mailFrom,
			"recipients", len(s.rcptTo),
			"message", t.MessageID,
			"project", t.Project,
		)
		s.reply("250 OK ticket queued")
	}
}

var errMessageTooLarge = errors.New("message too large")

// readData reads a DATA payload up to the lone "." line, undoing dot
// stuffing. A payload over limit bytes is read to the end and discarded.
func readData(r *bufio.Reader, limit int64) ([]byte, error) {
	var buf bytes.Buffer
	tooLarge := false
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}

		if strings.TrimRight(line, "\r\n") == "." {
			break
		}
		// RFC 5321 4.5.2: strip the leading dot of every stuffed line.
		line = strings.TrimPrefix(line, ".")

		if tooLarge {
			continue
		}
		if int64(buf.Len()+len(line)) > limit {
			tooLarge = true
			buf.Reset()
			continue
		}
		buf.WriteString(line)
	}
	if tooLarge {
		return nil, errMessageTooLarge
	}
	return buf.Bytes(), nil
}

// resetTransaction forgets the envelope but keeps the greeting and
// authentication.
func (s *Session) resetTransaction() {
	s.mailFrom = ""
	s.rcptTo = nil
	if s.state > stateAuthOK {
		if s.cfg.auth.Enabled() {
			s.state = stateAuthOK
		} else {
			s.state = stateGreeted
		}
	}
}

func (s *Session) reply(format string, args ...any) {
	if _, err := fmt.Fprintf(s.writer, format+"\r\n", args...); err != nil {
		slog.Error("failed to write to client", "error", err)
		return
	}
	if err := s.writer.Flush(); err != nil {
		slog.Error("failed to flush to client", "error", err)
	}
}

// parseCommand splits a command line into its upper-cased verb and the
// argument.
func parseCommand(line string) (string, string) {
	cmd, arg, _ := strings.Cut(line, " ")
	return strings.ToUpper(cmd), arg
}

// pathArgument parses "FROM:<addr> PARAMS" or "TO:<addr>", returning the
// address without brackets. ESMTP parameters such as SIZE= and BODY= are
// ignored.
func pathArgument(arg, prefix string) (string, bool) {
	if len(arg) < len(prefix) || !strings.EqualFold(arg[:len(prefix)], prefix) {
		return "", false
	}
	return extractAddress(arg[len(prefix):])
}

// extractAddress takes the address out of "<user@example.com> PARAMS" or a
// bare "user@example.com". ok is false for an unterminated bracket or an
// empty argument.
func extractAddress(s string) (addr string, ok bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<") {
		end := strings.Index(s, ">")
		if end < 0 {
			return "", false
		}
		return s[1:end], true
	}
	addr, _, _ = strings.Cut(s, " ")
	return addr, addr != ""
}
