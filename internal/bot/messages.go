package bot

// Replies sent to chat users
const (
	msgWelcomeBack = "🎬 Welcome back! Your Gemini API key is already saved.\n\n" +
		"Send me an English subtitle file (.srt) and I'll translate it to Sinhala!\n\n" +
		"Commands:\n" +
		"/start - Show this message\n" +
		"/setapi - Change your API key\n" +
		"/help - Get help"

	msgWelcome = "🎬 Welcome to Subtitle Translator Bot!\n\n" +
		"To get started, I need your Gemini API key.\n\n" +
		"📝 How to get your Gemini API key:\n" +
		"1. Visit: https://makersuite.google.com/app/apikey\n" +
		"2. Click 'Create API Key'\n" +
		"3. Copy the key and send it here\n\n" +
		"Send me your API key now:"

	msgSetAPI = "Please send me your Gemini API key:\n\n" +
		"Get it from: https://makersuite.google.com/app/apikey"

	msgHelp = "📖 How to use this bot:\n\n" +
		"1️⃣ Set up your Gemini API key (first time only)\n" +
		"2️⃣ Send me an English subtitle file (.srt)\n" +
		"3️⃣ Wait for the translation (may take a minute)\n" +
		"4️⃣ Download your Sinhala subtitle file\n\n" +
		"Commands:\n" +
		"/start - Start the bot\n" +
		"/setapi - Update your API key\n" +
		"/help - Show this help message"

	msgKeySaved = "✅ API key saved successfully!\n\n" +
		"Now send me an English subtitle file (.srt) to translate it to Sinhala."

	msgNeedKey = "⚠️ Please set up your Gemini API key first.\n" +
		"Use /start to get instructions."

	msgNotAKey = "⚠️ That doesn't look like a Gemini API key.\n" +
		"It should start with %s. Send /setapi to try again."

	msgSendFile = "Please send me a subtitle file (.srt) to translate."

	msgUnknownCommand = "Unknown command. Send /help to see what I can do."

	msgNotSubtitle = "⚠️ Please send a valid .srt subtitle file."

	msgTooLarge = "⚠️ That file is too large. The limit is %s."

	msgDownloading = "⏳ Downloading subtitle file..."

	msgParseFailed = "⚠️ Could not parse the subtitle file."

	msgDone = "✅ Translation complete! Here's your Sinhala subtitle file."

	msgCancelled = "🛑 Translation cancelled."

	msgFailed = "❌ An error occurred while processing your file.\n" +
		"Please try again or check your API key."
)
