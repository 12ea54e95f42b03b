package layout

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Layout wraps content in the document shell.
func Layout(title string, content templ.Component, theme ThemeDefinition) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\">"+
			"<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">"+
			"<title>"+templ.EscapeString(title)+"</title></head>"+
			"<body class=\""+templ.EscapeString(theme.BodyClass)+"\" data-theme=\""+templ.EscapeString(theme.ID)+"\">"+
			"<main class=\"mx-auto max-w-5xl px-4 py-8\">"); err != nil {
			return err
		}
		if content != nil {
			if err := content.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</main></body></html>")
		return err
	})
}
