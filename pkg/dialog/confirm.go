package dialog

import (
	"strconv"
	"strings"
)

type interruption int

const (
	interruptNone interruption = iota
	interruptHelp
	interruptCancel
)

func interruptionFor(text string) interruption {
	switch strings.ToLower(text) {
	case "help", "?":
		return interruptHelp
	case "cancel", "quit":
		return interruptCancel
	}
	return interruptNone
}

var (
	affirmativeWords = map[string]bool{
		"yes": true, "y": true, "yeah": true, "yep": true,
		"sure": true, "ok": true, "okay": true, "oui": true,
	}
	negativeWords = map[string]bool{
		"no": true, "n": true, "nope": true, "nah": true, "non": true,
	}
)

// recognizeConfirm maps a confirmation reply to a choice. recognized is false
// when the reply matches neither choice.
func recognizeConfirm(p ConfirmPrompt, reply string) (affirmative, recognized bool) {
	text := strings.ToLower(strings.TrimSpace(reply))
	text = strings.TrimRight(text, ".!")

	switch text {
	case strings.ToLower(p.Yes):
		return true, true
	case strings.ToLower(p.No):
		return false, true
	}
	if n, err := strconv.Atoi(text); err == nil {
		switch n {
		case 1:
			return true, true
		case 2:
			return false, true
		}
		return false, false
	}

	if p.Style == ConfirmYesNo {
		if affirmativeWords[text] {
			return true, true
		}
		if negativeWords[text] {
			return false, true
		}
	}
	return false, false
}
