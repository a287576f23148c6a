package notify

// Google Chat cardsV2 payload.

type cardPayload struct {
	CardsV2 []cardEntry `json:"cardsV2"`
}

type cardEntry struct {
	CardID string `json:"cardId,omitempty"`
	Card   card   `json:"card"`
}

type card struct {
	Header   *cardHeader   `json:"header,omitempty"`
	Sections []cardSection `json:"sections"`
}

type cardHeader struct {
	Title string `json:"title"`
}

type cardSection struct {
	Widgets []widget `json:"widgets"`
}

type widget struct {
	TextParagraph *textParagraph `json:"textParagraph,omitempty"`
	Image         *image         `json:"image,omitempty"`
	ButtonList    *buttonList    `json:"buttonList,omitempty"`
}

type textParagraph struct {
	Text string `json:"text"`
}

type image struct {
	ImageURL string   `json:"imageUrl"`
	AltText  string   `json:"altText,omitempty"`
	OnClick  *onClick `json:"onClick,omitempty"`
}

type buttonList struct {
	Buttons []button `json:"buttons"`
}

type button struct {
	Text    string  `json:"text"`
	OnClick onClick `json:"onClick"`
}

type onClick struct {
	OpenLink openLink `json:"openLink"`
}

type openLink struct {
	URL string `json:"url"`
}

// Card builds the cardsV2 payload of msg.
func Card(msg Message) any {
	widgets := []widget{{TextParagraph: &textParagraph{Text: msg.Text}}}

	if msg.ImageURL != "" {
		img := &image{ImageURL: msg.ImageURL, AltText: "Daily Report Chart"}
		if msg.LinkURL != "" {
			img.OnClick = &onClick{OpenLink: openLink{URL: msg.LinkURL}}
		}
		widgets = append(widgets, widget{Image: img})
	}
	if msg.LinkURL != "" && msg.LinkText != "" {
		widgets = append(widgets, widget{ButtonList: &buttonList{Buttons: []button{{
			Text:    msg.LinkText,
			OnClick: onClick{OpenLink: openLink{URL: msg.LinkURL}},
		}}}})
	}

	c := card{Sections: []cardSection{{Widgets: widgets}}}
	if msg.Title != "" {
		c.Header = &cardHeader{Title: msg.Title}
	}
	return cardPayload{CardsV2: []cardEntry{{Card: c}}}
}
