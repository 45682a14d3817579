package reader

// Element identifies a focusable control.
type Element int

const (
	NoFocus Element = iota - 1
	URLInput
	ReadButton
	SummarizeButton
	FontSlider
	SpeedSlider
	OutputText
	PauseButton
)

// FocusOrder is the fixed tab order of the controls.
var FocusOrder = []Element{
	URLInput,
	ReadButton,
	SummarizeButton,
	FontSlider,
	SpeedSlider,
	OutputText,
	PauseButton,
}

var elementIDs = map[Element]string{
	URLInput:        "url-input",
	ReadButton:      "read-button",
	SummarizeButton: "summarize-button",
	FontSlider:      "font-slider",
	SpeedSlider:     "speed-slider",
	OutputText:      "output-text",
	PauseButton:     "pause-button",
}

// ID returns the element's stable identifier, e.g. "url-input".
func (e Element) ID() string {
	if id, ok := elementIDs[e]; ok {
		return id
	}
	return "none"
}

func (e Element) String() string { return e.ID() }

// focusLabels are spoken when an element gains focus. The output area and
// the pause button have their own focus behavior.
var focusLabels = map[Element]string{
	URLInput:        "Enter the URL in this input box",
	ReadButton:      "Read URL button",
	SummarizeButton: "Summarize URL button",
	FontSlider:      "Adjust font size using the slider or left right arrow keys",
	SpeedSlider:     "Adjust speech speed using the slider, or left right arrow keys",
}

// nextFocus returns the element after current in order, skipping elements
// for which enabled reports false. step is +1 or -1. Focus outside the
// enabled set goes to the first enabled element.
func nextFocus(order []Element, current Element, step int, enabled func(Element) bool) Element {
	var candidates []Element
	for _, e := range order {
		if enabled(e) {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return NoFocus
	}

	idx := -1
	for i, e := range candidates {
		if e == current {
			idx = i
			break
		}
	}
	if idx == -1 {
		return candidates[0]
	}

	n := len(candidates)
	return candidates[((idx+step)%n+n)%n]
}
