package emotion

// murfStyles 将情绪标签映射到 Murf 的说话风格。
var murfStyles = map[Label]string{
	Neutral:  "Neutral",
	Happy:    "Cheerful",
	Sad:      "Sad",
	Angry:    "Angry",
	Excited:  "Excited",
	Tender:   "Calm",
	Comfort:  "Calm",
	Magnetic: "Conversational",
}

// Style 返回与情绪对应的 Murf 风格名称，未知标签返回空串。
func Style(label Label) string {
	return murfStyles[label]
}
