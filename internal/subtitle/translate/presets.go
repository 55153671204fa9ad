package translate

import "fmt"

// GetSystemPrompt returns the translation system prompt for a given preset
func GetSystemPrompt(opts Options) string {
	base := fmt.Sprintf(
		"You are a professional subtitle translator. Translate the following %s subtitle text to %s. "+
			"Keep the translation natural and conversational, and concise enough for subtitle display. "+
			"Keep the same number of lines as the input. "+
			"Only provide the translated text without any explanations, quotes or notes.",
		langName(opts.SourceLang), langName(opts.TargetLang),
	)

	switch opts.Preset {
	case "anime":
		return base + "\n\n" +
			"Additional guidelines for anime translation:\n" +
			"- Use casual, natural speech patterns appropriate for anime dialogue\n" +
			"- Keep character name consistency\n" +
			"- Match the emotional tone (excited, serious, comedic)\n" +
			"- Translate onomatopoeia and sound effects appropriately"

	case "movie":
		return base + "\n\n" +
			"Additional guidelines for movie/drama translation:\n" +
			"- Use natural conversational style appropriate for the genre\n" +
			"- Preserve cultural nuances and idioms with equivalent expressions\n" +
			"- Maintain formal/informal register matching the original dialogue"

	case "documentary":
		return base + "\n\n" +
			"Additional guidelines for documentary translation:\n" +
			"- Use formal, precise language\n" +
			"- Preserve all technical terminology with accurate translations\n" +
			"- Keep numbers, dates, and measurements accurate"

	case "custom":
		if opts.CustomPrompt != "" {
			return base + "\n\nUser instructions: " + opts.CustomPrompt
		}
		return base

	default:
		return base
	}
}

func userPrompt(text string) string {
	return "Text: " + text
}

func langName(code string) string {
	names := map[string]string{
		"si":   "Sinhala",
		"ta":   "Tamil",
		"ko":   "Korean",
		"en":   "English",
		"ja":   "Japanese",
		"zh":   "Chinese",
		"es":   "Spanish",
		"fr":   "French",
		"de":   "German",
		"pt":   "Portuguese",
		"it":   "Italian",
		"ru":   "Russian",
		"ar":   "Arabic",
		"hi":   "Hindi",
		"th":   "Thai",
		"vi":   "Vietnamese",
		"id":   "Indonesian",
		"auto": "auto-detected language",
	}
	if name, ok := names[code]; ok {
		return name
	}
	return code
}
