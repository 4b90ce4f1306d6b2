package response

import (
	"bytes"
	"html/template"
	"net/http"

	"hireflow/internal/common"
)

type Link struct {
	Label string
	URL   string
}

type UploadForm struct {
	Action    string
	MaxFiles  int
	MaxSizeMB int
	Accept    string
}

// PageData feeds the single candidate-facing page layout.
type PageData struct {
	Title   string
	Heading string
	Message string
	Details []string
	Links   []Link
	Form    *UploadForm
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body{font-family:system-ui,sans-serif;max-width:640px;margin:48px auto;padding:0 16px;color:#222}
h1{font-size:1.5rem}
a.button{display:inline-block;margin:8px 8px 0 0;padding:8px 16px;border:1px solid #345;border-radius:4px;text-decoration:none;color:#345}
</style>
</head>
<body>
<h1>{{.Heading}}</h1>
{{if .Message}}<p>{{.Message}}</p>{{end}}
{{range .Details}}<p>{{.}}</p>
{{end}}
{{if .Form}}<form method="post" action="{{.Form.Action}}" enctype="multipart/form-data">
<p>Up to {{.Form.MaxFiles}} files, {{.Form.MaxSizeMB}} MB each.</p>
<input type="file" name="files" multiple accept="{{.Form.Accept}}">
<p><button type="submit">Upload</button></p>
</form>
{{end}}
{{range .Links}}<a class="button" href="{{.URL}}">{{.Label}}</a>
{{end}}
</body>
</html>
`))

func Page(w http.ResponseWriter, status int, data PageData) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// FailurePage renders err for a candidate. Only not-found, validation and
// rate-limit messages are shown; everything else gets a generic page.
func FailurePage(w http.ResponseWriter, err error) {
	code := common.CodeOf(err)
	status := StatusOf(code)
	switch code {
	case common.CodeNotFound:
		Page(w, status, PageData{Title: "Not found", Heading: "Link unavailable", Message: common.MessageOf(err)})
	case common.CodeValidation:
		data := PageData{Title: "Invalid request", Heading: "We could not accept that", Message: common.MessageOf(err)}
		if typed, ok := common.As(err); ok {
			for _, detail := range typed.Fields {
				data.Details = append(data.Details, detail)
			}
		}
		Page(w, status, data)
	case common.CodeRateLimited:
		Page(w, status, PageData{Title: "Too many requests", Heading: "Please slow down", Message: "Too many requests. Please wait a minute and try again."})
	default:
		Page(w, http.StatusInternalServerError, PageData{Title: "Error", Heading: "Something went wrong", Message: "We could not process your request. Please try again later."})
	}
}
