package speech

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	json "github.com/goccy/go-json"
)

const (
	googleTTSRPC     = "jQ1olc"
	googleChunkRunes = 100
)

var googleAudioRe = regexp.MustCompile(`jQ1olc","\[\\"(.*)\\"]`)

// GoogleTTS ходит в тот же endpoint Google Translate, что и gTTS.
type GoogleTTS struct {
	lang    string
	slow    bool
	baseURL string
	httpCli *http.Client
}

func NewGoogleTTS(lang, tld string, slow bool) *GoogleTTS {
	return &GoogleTTS{
		lang:    lang,
		slow:    slow,
		baseURL: fmt.Sprintf("https://translate.google.%s", tld),
		httpCli: http.DefaultClient,
	}
}

func (g *GoogleTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	chunks := SplitText(text, googleChunkRunes)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("nothing to synthesize")
	}

	var audio bytes.Buffer
	for i, chunk := range chunks {
		part, err := g.synthesizeChunk(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		audio.Write(part)
	}
	return audio.Bytes(), nil
}

func (g *GoogleTTS) synthesizeChunk(ctx context.Context, text string) ([]byte, error) {
	body, err := g.rpcBody(text)
	if err != nil {
		return nil, err
	}

	endpoint := g.baseURL + "/_/TranslateWebserverUi/data/batchexecute"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")
	req.Header.Set("Referer", "http://translate.google.com/")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/47.0.2526.106 Safari/537.36")

	resp, err := g.httpCli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("google tts status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	return decodeBatchResponse(resp.Body)
}

// f.req=[[["jQ1olc","[\"text\",\"es\",null,\"null\"]",null,"generic"]]]
func (g *GoogleTTS) rpcBody(text string) (string, error) {
	var speed any
	if g.slow {
		speed = true
	}

	param, err := json.Marshal([]any{text, g.lang, speed, "null"})
	if err != nil {
		return "", err
	}

	rpc, err := json.Marshal([][][]any{{{googleTTSRPC, string(param), nil, "generic"}}})
	if err != nil {
		return "", err
	}

	return "f.req=" + url.QueryEscape(string(rpc)) + "&", nil
}

func decodeBatchResponse(r io.Reader) ([]byte, error) {
	var out bytes.Buffer

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if !strings.Contains(line, googleTTSRPC) {
			continue
		}
		m := googleAudioRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(m[1])
		if err != nil {
			return nil, fmt.Errorf("decode audio: %w", err)
		}
		out.Write(decoded)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if out.Len() == 0 {
		return nil, fmt.Errorf("google tts: no audio in response")
	}
	return out.Bytes(), nil
}
