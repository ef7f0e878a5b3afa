package mural

// styleModifiers is the fixed set of prompt fragments distributed round-robin
// across a batch so one request yields visually distinct siblings.
var styleModifiers = [BatchSize]string{
	"cinematic lighting, shallow depth of field",
	"soft watercolor wash",
	"bold flat illustration",
	"moody film grain, muted palette",
	"crisp studio render, high detail",
}

// StyleModifier returns the style fragment for the given batch slot.
func StyleModifier(slot int) string {
	if slot < 0 {
		slot = -slot
	}
	return styleModifiers[slot%len(styleModifiers)]
}
