package dispatch

import (
	"strings"

	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
)

// Placeholder es la identidad usada cuando el Directory falla.
const Placeholder = "a teammate"

// Member es un miembro resuelto listo para componer el mensaje.
type Member struct {
	ID       pairing.ParticipantID
	Identity pairing.Identity
	Profile  *pairing.Profile
}

// Compose arma el texto (mrkdwn plano) de la notificación de un grupo:
// saludo con todos los nombres y una línea por miembro con sus datos
// de perfil (pronouns, location, ask_me_about, hobbies) si existen.
func Compose(members []Member) string {
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Identity.DisplayName
	}

	var b strings.Builder
	b.WriteString("Hi ")
	b.WriteString(joinNames(names))
	b.WriteString("! :wave: You've been paired for this round. Find a time to meet and say hello.")

	var lines []string
	for _, m := range members {
		if line := highlights(m); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > 0 {
		b.WriteString("\n")
		for _, l := range lines {
			b.WriteString("\n")
			b.WriteString(l)
		}
	}
	return b.String()
}

// Welcome es el mensaje para quien se inscribe por primera vez.
func Welcome(name string) string {
	if name == "" {
		name = "there"
	}
	return "Welcome, " + name + "! You're in the next round of pairings."
}

func highlights(m Member) string {
	if m.Profile == nil {
		return ""
	}
	var parts []string
	if v := m.Profile.Get(pairing.ProfilePronouns); v != "" {
		parts = append(parts, "("+v+")")
	}
	if v := m.Profile.Get(pairing.ProfileLocation); v != "" {
		parts = append(parts, ":round_pushpin: "+v)
	}
	if v := m.Profile.Get(pairing.ProfileAskMeAbout); v != "" {
		parts = append(parts, "ask me about: "+v)
	}
	if v := m.Profile.Get(pairing.ProfileHobbies); v != "" {
		parts = append(parts, "hobbies: "+v)
	}
	if len(parts) == 0 {
		return ""
	}
	return "• *" + m.Identity.DisplayName + "* " + strings.Join(parts, " · ")
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}
