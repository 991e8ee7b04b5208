// Copyright 2024-2026 Aiku AI

package relay

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/aiku/fixupx-relay/pkg/mdfmt"
)

// Command names understood by the relay.
const (
	CommandDelete = "delete"
	CommandHelp   = "help"
	CommandStart  = "start"
	CommandStats  = "stats"
)

// StatsLeaderboardSize is the number of rows in the chat stats report.
const StatsLeaderboardSize = 5

const (
	statsDeniedReply   = "You are not authorized to view bot statistics."
	statsDisabledReply = "Statistics are not enabled on this relay."
	statsFailedReply   = "Failed to load statistics. Please try again later."
)

// Command is a parsed chat command.
type Command struct {
	Name string
	Args string
}

// ParseCommand recognizes text whose first word is prefix followed by a
// lowercase ASCII name. Everything after the first word is returned as Args.
func ParseCommand(prefix, text string) (Command, bool) {
	text = strings.TrimSpace(text)
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return Command{}, false
	}
	word, args := text[len(prefix):], ""
	if i := strings.IndexFunc(word, unicode.IsSpace); i >= 0 {
		word, args = word[:i], word[i:]
	}
	if word == "" {
		return Command{}, false
	}
	for _, r := range word {
		if r < 'a' || r > 'z' {
			return Command{}, false
		}
	}
	return Command{Name: word, Args: strings.TrimSpace(args)}, true
}

func startText(prefix string) string {
	return "Hi! I'm the FixupX relay. I automatically convert x.com and twitter.com links " +
		"to fixupx.com and fxtwitter.com and remove tracking parameters.\n\n" +
		"I also clean tracking parameters from fixupx.com and fxtwitter.com links posted directly.\n\n" +
		"The original poster can delete my message by replying to it with " + prefix + CommandDelete + ".\n\n" +
		"Just add me to your channel and I'll do the rest!\n\n" +
		"Note: I need permission to delete other members' posts."
}

func helpText(prefix string) string {
	return "Add me to your channel and I'll automatically detect and convert any " +
		"x.com or twitter.com links to fixupx.com or fxtwitter.com.\n\n" +
		"I also remove tracking parameters from these links to protect your privacy.\n\n" +
		"When someone posts a matching link, I'll:\n" +
		"1. Delete their original message\n" +
		"2. Post a new message with their name and the fixed link\n\n" +
		"The original poster can delete my message by replying to it with " + prefix + CommandDelete + ".\n\n" +
		"Note: I need permission to delete other members' posts."
}

// FormatStatsReport renders a summary as Mattermost markdown.
func FormatStatsReport(summary StatsSummary) string {
	var b strings.Builder
	b.WriteString("📊 " + mdfmt.Bold("Bot Statistics") + "\n\n")
	fmt.Fprintf(&b, "%s %d\n", mdfmt.Bold("Total Channels:"), summary.TotalChats)
	fmt.Fprintf(&b, "%s %d\n", mdfmt.Bold("Total Users:"), summary.TotalUsers)
	fmt.Fprintf(&b, "%s %d\n", mdfmt.Bold("Total Conversions:"), summary.TotalConversions)

	if len(summary.TopChats) > 0 {
		rows := make([]string, len(summary.TopChats))
		for i, chat := range summary.TopChats {
			rows[i] = mdfmt.Escape(orUnknown(chat.Title)) + ": " + conversions(chat.Conversions)
		}
		b.WriteString("\n" + mdfmt.Bold("Most Active Channels:") + "\n")
		b.WriteString(mdfmt.NumberedList(rows) + "\n")
	}
	if len(summary.TopUsers) > 0 {
		rows := make([]string, len(summary.TopUsers))
		for i, user := range summary.TopUsers {
			name := "Unknown"
			if user.Username != "" {
				name = "@" + user.Username
			}
			rows[i] = mdfmt.Escape(name) + ": " + conversions(user.Conversions)
		}
		b.WriteString("\n" + mdfmt.Bold("Most Active Users:") + "\n")
		b.WriteString(mdfmt.NumberedList(rows) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func conversions(n int64) string {
	if n == 1 {
		return "1 conversion"
	}
	return strconv.FormatInt(n, 10) + " conversions"
}
