package handlers

// User-facing message templates. Keep the wording short; these land in a chat
// window, not a terminal.
const (
	msgWelcome = "Hi! I'm LunchBuddy. I ask whether you're joining the group lunch and collect the headcount.\n\n" +
		"Use /enroll to sign up, /status to see your profile, /help for everything else."
	msgWelcomeEnrolled = "Welcome back, %s! You're enrolled. I'll ping you before each lunch day."

	msgHelp = "Commands:\n" +
		"/enroll — sign up for group lunches\n" +
		"/unenroll — stop receiving lunch prompts\n" +
		"/status — show your enrollment profile\n" +
		"/cancel — abort the current conversation\n" +
		"/help — this message"

	msgAskName       = "Let's get you enrolled! What's your full name?"
	msgAskEmail      = "Thanks, %s. What's your work email?"
	msgBadEmail      = "That doesn't look like an email address. Please try again."
	msgAskDiet       = "Got it. What's your meal preference?"
	msgAskDays       = "Last one: which weekdays do you usually join?\nTap the days to toggle them, then hit Done."
	msgUseDayButtons = "Please use the buttons below to pick your days, then hit Done."
	msgEnrollDone    = "You're enrolled, %s! 🎉\nDefault lunch days: %s.\nI'll send you a Yes/No prompt before each lunch day."
	msgEnrollAbort   = "Enrollment cancelled. Use /enroll to start over."
	msgNothToCancel  = "Nothing to cancel."

	msgUnenrolled    = "You're unenrolled. I won't send you lunch prompts anymore. /enroll brings you back anytime."
	msgNotEnrolled   = "You're not enrolled yet. Use /enroll to sign up."
	msgStatusProfile = "👤 %s\n📧 %s\n🍽 %s\n📅 Default days: %s"

	msgReplyYes        = "You're in for %s ✅"
	msgReplyNo         = "Noted, skipping %s ❌"
	msgReplyTooLate    = "That lunch is already settled. Catch the next prompt!"
	msgOperatorOnly    = "This command is for the lunch operator."
	msgResubmitUsage   = "Usage: /resubmit YYYY-MM-DD"
	msgResubmitStarted = "Resubmitting attendance for %s…"
	msgResubmitOK      = "Attendance for %s submitted."
	msgResubmitFailed  = "Resubmission for %s failed: %v"
)
