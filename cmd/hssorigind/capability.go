package main

import (
	"encoding/json"
)

// capability is the JSON document this connector advertises at startup
// (§6): the codecs it can serve, the manifest/fragment URL shape, the
// logical socket name the process supervisor uses to reach it, and the MIME
// handler entries a reverse proxy uses to route requests here.
type capability struct {
	Codecs      [][]string    `json:"codecs"`
	URLRel      string        `json:"url_rel"`
	URLPrefix   string        `json:"url_prefix"`
	Socket      string        `json:"socket"`
	MIMEHandler []mimeHandler `json:"mime_handler"`
}

type mimeHandler struct {
	MIME     string `json:"mime"`
	Priority int    `json:"priority"`
	NoLive   int    `json:"nolive"`
}

func defaultCapability() capability {
	return capability{
		Codecs:    [][]string{{"H264", "AAC"}},
		URLRel:    "/smooth/$.ism/Manifest",
		URLPrefix: "/smooth/$.ism/",
		Socket:    "http_smooth",
		MIMEHandler: []mimeHandler{
			{MIME: "html5/application/vnd.ms-ss", Priority: 9, NoLive: 1},
			{MIME: "silverlight", Priority: 1, NoLive: 1},
		},
	}
}

func (c capability) json() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
