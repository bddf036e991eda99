package consult

const ResponseOrigin = "n8n"

type Metadata struct {
	LongitudTexto int    `json:"longitud_texto"`
	AudioGenerado bool   `json:"audio_generado"`
	Origen        string `json:"origen"`
	AudioURL      string `json:"audio_url,omitempty"`
}

type Result struct {
	Texto    string   `json:"texto"`
	Audio    *string  `json:"audio"`
	Metadata Metadata `json:"metadata"`
}
