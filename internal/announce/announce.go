// Package announce renders the session parameters into the banner and
// copy-paste commands the operator distributes to the two peers. It is a pure
// formatting layer over session.Announcement: no core logic, no side effects.
package announce

import (
	"fmt"
	"strings"

	"github.com/bytechute/chute/internal/mode"
	"github.com/bytechute/chute/internal/session"
	"github.com/charmbracelet/lipgloss"
)

const (
	PRIMARY_COLOR   = "#B8BABA"
	SECONDARY_COLOR = "#626262"
	SENDER_COLOR    = "#2D9CDB"
	RECEIVER_COLOR  = "#BB6BD9"
	BANNER_COLOR    = "#34B233"
	MODE_COLOR      = "#EE9F40"
)

var baseStyle = lipgloss.NewStyle()
var InfoStyle = baseStyle.Copy().Foreground(lipgloss.Color(PRIMARY_COLOR)).Render
var HelpStyle = baseStyle.Copy().Foreground(lipgloss.Color(SECONDARY_COLOR)).Render
var ModeText = baseStyle.Copy().Bold(true).Foreground(lipgloss.Color(MODE_COLOR)).Render
var SenderText = baseStyle.Copy().Bold(true).Foreground(lipgloss.Color(SENDER_COLOR)).Render
var ReceiverText = baseStyle.Copy().Bold(true).Foreground(lipgloss.Color(RECEIVER_COLOR)).Render

var bannerStyle = baseStyle.Copy().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color(BANNER_COLOR)).
	Padding(0, 1)

// Command is one runnable instruction for a peer, in both flavors: a bash
// one-liner needing nothing but /dev/tcp (and openssl for the encrypted
// mode), and the equivalent chute invocation.
type Command struct {
	Mode   mode.Descriptor
	Bash   string
	Native string
}

// SenderCommands returns one command per advertised mode for the sending peer.
func SenderCommands(a session.Announcement) []Command {
	addr := fmt.Sprintf("%s:%d", a.Host, a.Port)
	tcp := fmt.Sprintf("/dev/tcp/%s/%d", a.Host, a.Port)
	commands := make([]Command, 0, len(a.Modes))
	for _, d := range a.Modes {
		var bash string
		switch d.Mode {
		case mode.Plain:
			bash = fmt.Sprintf(`bash -c 'cat > "%s" < "$1"' _ %s`, tcp, a.Filename)
		case mode.Integrity:
			bash = fmt.Sprintf(
				`bash -c 'f=$1; { cat "$f"; sha256sum "$f" | cut -c1-64 | xxd -r -p; } > "%s"' _ %s`,
				tcp, a.Filename)
		case mode.EncryptedIntegrity:
			bash = fmt.Sprintf(
				`bash -c 'f=$1; openssl enc -aes-256-cbc -pbkdf2 -salt -pass pass:%s < "$f" > "$f.enc"; { cat "$f.enc"; sha256sum "$f.enc" | cut -c1-64 | xxd -r -p; } > "%s"; rm "$f.enc"' _ %s`,
				a.Password, tcp, a.Filename)
		}
		commands = append(commands, Command{
			Mode:   d,
			Bash:   bash,
			Native: nativeCommand("push", addr, a, d),
		})
	}
	return commands
}

// ReceiverCommands returns one command per advertised mode for the receiving peer.
func ReceiverCommands(a session.Announcement) []Command {
	addr := fmt.Sprintf("%s:%d", a.Host, a.Port)
	tcp := fmt.Sprintf("/dev/tcp/%s/%d", a.Host, a.Port)
	commands := make([]Command, 0, len(a.Modes))
	for _, d := range a.Modes {
		var bash string
		switch d.Mode {
		case mode.Plain:
			bash = fmt.Sprintf(`bash -c 'cat < "%s" > "$1"' _ %s`, tcp, a.Filename)
		case mode.Integrity:
			bash = fmt.Sprintf(
				`bash -c 'f=$1; cat < "%s" > "$f.dl"; head -c -32 "$f.dl" > "$f"; test "$(sha256sum "$f" | cut -c1-64)" = "$(tail -c 32 "$f.dl" | xxd -p -c 32)" && rm "$f.dl" && echo verified' _ %s`,
				tcp, a.Filename)
		case mode.EncryptedIntegrity:
			bash = fmt.Sprintf(
				`bash -c 'f=$1; cat < "%s" > "$f.dl"; head -c -32 "$f.dl" > "$f.enc"; test "$(sha256sum "$f.enc" | cut -c1-64)" = "$(tail -c 32 "$f.dl" | xxd -p -c 32)" && openssl enc -d -aes-256-cbc -pbkdf2 -pass pass:%s < "$f.enc" > "$f" && rm "$f.dl" "$f.enc" && echo verified' _ %s`,
				tcp, a.Password, a.Filename)
		}
		commands = append(commands, Command{
			Mode:   d,
			Bash:   bash,
			Native: nativeCommand("pull", addr, a, d),
		})
	}
	return commands
}

func nativeCommand(verb, addr string, a session.Announcement, d mode.Descriptor) string {
	cmd := fmt.Sprintf("chute %s %s %s --mode %s", verb, addr, a.Filename, d.Name)
	if d.Enciphered {
		cmd += fmt.Sprintf(" --password %s", a.Password)
	}
	return cmd
}

// Render produces the full announcement: banner, sender commands, receiver
// commands. Rendered once at startup, before the relay starts accepting.
func Render(a session.Announcement) string {
	var b strings.Builder

	banner := strings.Join([]string{
		"chute — one-shot relay: the sender streams once, the receiver reads once",
		"",
		infoLine("Host", a.Host),
		infoLine("Port", fmt.Sprintf("%d", a.Port)),
		infoLine("Filename", a.Filename),
		infoLine("Password (encrypted mode)", a.Password),
	}, "\n")
	b.WriteString(bannerStyle.Render(banner))
	b.WriteString("\n\n")

	b.WriteString(SenderText("Sender — run ONE of these first:"))
	b.WriteString("\n")
	writeCommands(&b, SenderCommands(a))

	b.WriteString(ReceiverText("Receiver — run the MATCHING one:"))
	b.WriteString("\n")
	writeCommands(&b, ReceiverCommands(a))

	b.WriteString(HelpStyle("Both peers must use the same mode. The relay forwards bytes as-is and exits after one transfer."))
	b.WriteString("\n")
	return b.String()
}

func writeCommands(b *strings.Builder, commands []Command) {
	for _, c := range commands {
		b.WriteString(ModeText(fmt.Sprintf("[%s]", c.Mode.Name)))
		b.WriteString(HelpStyle(" " + c.Mode.Summary))
		b.WriteString("\n")
		b.WriteString("  " + c.Bash + "\n")
		b.WriteString(HelpStyle("  or: ") + c.Native + "\n")
	}
	b.WriteString("\n")
}

func infoLine(key, value string) string {
	return HelpStyle(key+":") + " " + InfoStyle(value)
}
