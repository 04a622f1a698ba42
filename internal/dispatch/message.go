package dispatch

import "fmt"

// buildRevealMessage renders the chat message carrying a giver's one-time
// reveal link
func buildRevealMessage(groupName, participantName, link string) string {
	return fmt.Sprintf(`🎁 *Secret Santa - %s* 🎁

Hi %s!

The draw is done and you can now find out who you got! 🎉

Tap the link below to reveal your person:

🔗 %s

⚠️ *Important:*
• This link is personal and can only be opened ONCE
• Remember the name well before closing the page
• Don't share this link with anyone

Have fun! 🎄✨`, groupName, participantName, link)
}
