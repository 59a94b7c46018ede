package notify

import (
	"fmt"

	"github.com/brightmed/medremind/internal/models"
)

// voiceScript is the fixed three-part script read out during a reminder call.
type voiceScript struct {
	Greeting     string
	Instruction  string
	Confirmation string
}

var voiceScripts = map[models.Language]voiceScript{
	models.LanguageEnglish: {
		Greeting:     "Hello, this is a medication reminder.",
		Instruction:  "It's time to take your medicine: ",
		Confirmation: "Press 1 to confirm you have taken the medicine.",
	},
	models.LanguageHindi: {
		Greeting:     "नमस्ते, यह दवा की याद दिलाने के लिए कॉल है।",
		Instruction:  "अब आपकी दवा लेने का समय है: ",
		Confirmation: "दवा ली है यह बताने के लिए 1 दबाएं।",
	},
	models.LanguageMarathi: {
		Greeting:     "नमस्कार, ही औषध आठवण करून देण्यासाठी कॉल आहे।",
		Instruction:  "आता तुमची औषधे घेण्याची वेळ आहे: ",
		Confirmation: "औषध घेतल्याची पुष्टी करण्यासाठी 1 दाबा।",
	},
}

var smsTemplates = map[models.Language]string{
	models.LanguageEnglish: "Reminder: Please take your medicine - %s",
	models.LanguageHindi:   "अनुस्मारक: कृपया अपनी दवा लें - %s",
	models.LanguageMarathi: "आठवण: कृपया आपली औषधे घ्या - %s",
}

// VoiceMessage renders the full call script for the given language and
// medication. Unknown languages fall back to English.
func VoiceMessage(language models.Language, medicationName string) string {
	script, ok := voiceScripts[language]
	if !ok {
		script = voiceScripts[models.LanguageEnglish]
	}
	return script.Greeting + " " + script.Instruction + medicationName + ". " + script.Confirmation
}

// SMSMessage renders the one-line SMS text for the given language and
// medication. Unknown languages fall back to English.
func SMSMessage(language models.Language, medicationName string) string {
	tmpl, ok := smsTemplates[language]
	if !ok {
		tmpl = smsTemplates[models.LanguageEnglish]
	}
	return fmt.Sprintf(tmpl, medicationName)
}
