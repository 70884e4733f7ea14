package flow

// Reply keyboard labels the bot maps to flow payloads.
const (
	LabelStart        = "📝 Leave a request"
	LabelBack         = "⬅️ Back"
	LabelCancel       = "❌ Cancel"
	LabelUseHandle    = "✅ Use my @username"
	LabelEnterPhone   = "📞 Enter phone"
	LabelOtherContact = "✍️ Other contact"
	LabelSkipContact  = "⏭ Skip"
)

const (
	maxNeuroExamples = 5
	minPhoneLength   = 6
	minContactLength = 3
	shortRefLength   = 8
)

// Copy shared with the menu pages.
const (
	NoticeStaleButton = "This button is no longer active."
	NoticeInvalidPick = "Invalid choice"
	TextChooseService = "Choose a service:"
	TextMainMenu      = "Main menu 👇"
)

const (
	noticeSubmitting   = "Your request is already being sent."
	textRestartService = "OK, let's start over. " + TextChooseService
	textExpired        = "Your previous request has expired. " + TextMainMenu
	textSendFailed     = "⚠️ Could not send the request. Please try again."
)

// Texts holds the configurable long-form copy of the flow.
type Texts struct {
	NeuroStep1    string   `yaml:"neuro_step1"`
	NeuroStep2    string   `yaml:"neuro_step2"`
	NeuroWishes   string   `yaml:"neuro_wishes"`
	NeuroExamples []string `yaml:"neuro_examples"`
	ContentTask   string   `yaml:"content_task"`
	VideoTask     string   `yaml:"video_task"`
	Model3DIntro  string   `yaml:"model3d_intro"`
	Success       string   `yaml:"success"`
}

// DefaultTexts returns the built-in copy.
func DefaultTexts() Texts {
	return Texts{
		NeuroStep1: "🧠 Neuro photo session\n\n" +
			"Step 1 of 2. Pick 10 to 20 photos of yourself:\n" +
			"— good lighting, face clearly visible\n" +
			"— different angles and facial expressions\n" +
			"— no filters, masks or sunglasses\n\n" +
			"See the examples below.",
		NeuroStep2: "Step 2 of 2. How it works:\n" +
			"— you send the photos after the request is confirmed\n" +
			"— we train a model on your face\n" +
			"— you receive a set of images in the chosen style",
		NeuroWishes: "Describe your wishes: style, mood, images you like.",
		ContentTask: "📢 Content for social media / ads\n\n" +
			"Briefly describe the task:\n" +
			"— which platform the content is for\n" +
			"— what it is for\n" +
			"— which format you are interested in\n" +
			"— examples or a style you like (links are fine)\n\n" +
			"Not sure yet? Describe it in general terms and we will suggest options.",
		VideoTask: "🎬 Video greeting\n\n" +
			"Describe the idea of the video:\n" +
			"— the occasion\n" +
			"— who it is for\n" +
			"— the mood you want\n" +
			"— wishes for music or style\n\n" +
			"No clear idea yet? Write in general terms and we will help shape the concept.",
		Model3DIntro: "🎨 3D model from a drawing\n\n" +
			"Send a drawing or a sketch and we will turn it into a 3D model.\n" +
			"Press “▶️ Next” when you are ready.",
		Success: "✅ Thank you! Your request has been sent. We will contact you soon.",
	}
}

// withDefaults fills empty fields from DefaultTexts.
func (t Texts) withDefaults() Texts {
	d := DefaultTexts()
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&t.NeuroStep1, d.NeuroStep1)
	fill(&t.NeuroStep2, d.NeuroStep2)
	fill(&t.NeuroWishes, d.NeuroWishes)
	fill(&t.ContentTask, d.ContentTask)
	fill(&t.VideoTask, d.VideoTask)
	fill(&t.Model3DIntro, d.Model3DIntro)
	fill(&t.Success, d.Success)
	return t
}
