package tickets

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

const transcriptTimeLayout = "2006-01-02 15:04:05"

// BuildTranscript renders messages, oldest first, under the closing header. A history
// fetch error is appended as a final line.
func BuildTranscript(name, closedBy string, closedAt time.Time, messages []*discordgo.Message, fetchErr error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Transcript of %s closed by %s on %s (UTC):\n\n", name, closedBy, closedAt.UTC().Format(transcriptTimeLayout))
	for _, m := range messages {
		author := "unknown"
		if m.Member != nil && m.Member.User != nil {
			author = m.Member.DisplayName()
		} else if m.Author != nil {
			author = m.Author.DisplayName()
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.Timestamp.UTC().Format(transcriptTimeLayout), author, m.Content)
	}
	if fetchErr != nil {
		fmt.Fprintf(&b, "\n--- ERROR WHILE FETCHING MESSAGES: %v ---\n", fetchErr)
	}
	return b.String()
}
