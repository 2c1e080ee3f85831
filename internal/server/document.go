package server

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

// PreviewPage is everything the preview document needs.
type PreviewPage struct {
	Title string
	// Component is the type/variation key of the previewed component
	Component string
	// AssetsURL is the URL prefix of the global assets tree
	AssetsURL string
	Styles    string
	Vendors   []string
	// Body is the rendered component, preview chrome included
	Body      string
	Script    string
	HotReload bool
}

const chromeStyles = `.pagelume-preview {
  margin: 20px;
  border: 1px solid #ddd;
  border-radius: 8px;
  overflow: hidden;
  background: white;
}
.pagelume-preview__info {
  background: #f5f5f5;
  padding: 10px 15px;
  border-bottom: 1px solid #ddd;
  font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;
}
.pagelume-preview__type {
  font-size: 12px;
  color: #666;
  text-transform: uppercase;
}
.pagelume-preview__name {
  font-size: 16px;
  font-weight: 600;
  color: #333;
  margin-left: 10px;
}
.pagelume-preview__content {
  position: relative;
}`

// hotReloadScript reloads the page when an update for component arrives.
// An empty component reloads on every update.
const hotReloadScript = `(function () {
  var component = %s;
  var scheme = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(scheme + location.host + "/__pagelume/ws");
  ws.onmessage = function (event) {
    var msg = JSON.parse(event.data);
    if (msg.type === "component-update" && (component === "" || msg.component === component)) {
      location.reload();
    }
  };
})();`

// PreviewDocument renders the full HTML page around a rendered component.
func PreviewDocument(p PreviewPage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		assets := strings.TrimSuffix(p.AssetsURL, "/")

		var b strings.Builder
		b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
		b.WriteString("  <meta charset=\"UTF-8\">\n")
		b.WriteString("  <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
		b.WriteString("  <title>" + templ.EscapeString(p.Title) + " - Pagelume Component Preview</title>\n")
		b.WriteString("  <link rel=\"stylesheet\" href=\"" + templ.EscapeString(assets+"/css/pagelume-global.css") + "\">\n")
		b.WriteString("  <style>\n" + chromeStyles + "\n  </style>\n")
		if p.Styles != "" {
			b.WriteString("  <style data-component=\"" + templ.EscapeString(p.Component) + "\">\n" + p.Styles + "\n  </style>\n")
		}
		for _, vendor := range p.Vendors {
			b.WriteString("  <!-- Vendor: " + commentSafe(vendor) + " will be loaded by vendor-loader.js -->\n")
		}
		b.WriteString("</head>\n<body>\n")
		b.WriteString(p.Body)
		b.WriteString("\n  <script src=\"" + templ.EscapeString(assets+"/js/pagelume-core.js") + "\"></script>\n")
		b.WriteString("  <script src=\"" + templ.EscapeString(assets+"/js/vendor-loader.js") + "\"></script>\n")

		if len(p.Vendors) > 0 {
			vendors, err := templ.JSONString(p.Vendors)
			if err != nil {
				return err
			}
			b.WriteString("  <script>\n    Pagelume.loadVendors(" + vendors + ").then(function () {\n")
			b.WriteString(p.Script)
			b.WriteString("\n    });\n  </script>\n")
		} else if p.Script != "" {
			b.WriteString("  <script>\n" + p.Script + "\n  </script>\n")
		}

		if p.HotReload {
			script, err := reloadScript(p.Component)
			if err != nil {
				return err
			}
			b.WriteString(script)
		}
		b.WriteString("</body>\n</html>\n")

		_, err := io.WriteString(w, b.String())
		return err
	})
}

func reloadScript(component string) (string, error) {
	key, err := templ.JSONString(component)
	if err != nil {
		return "", err
	}
	return "  <script>\n" + strings.Replace(hotReloadScript, "%s", key, 1) + "\n  </script>\n", nil
}

// commentSafe keeps a value from terminating the surrounding HTML comment.
func commentSafe(s string) string {
	return strings.NewReplacer("--", "", ">", "", "<", "").Replace(s)
}

// GalleryItem is one component card on the index page.
type GalleryItem struct {
	Key         string
	Name        string
	Type        string
	Variation   string
	Description string // sanitized HTML
	Tags        []string
	Vendors     []string
	Fields      int
}

// GalleryPage is the index of every discovered component.
type GalleryPage struct {
	Items     []GalleryItem
	Warnings  []string
	HotReload bool
}

const galleryStyles = `body { font-family: system-ui, -apple-system, sans-serif; margin: 0; padding: 20px; background: #f5f5f5; }
.container { max-width: 1200px; margin: 0 auto; }
h1 { color: #333; border-bottom: 2px solid #007acc; padding-bottom: 10px; }
.component-list { display: grid; grid-template-columns: repeat(auto-fill, minmax(300px, 1fr)); gap: 20px; }
.component-card { border: 1px solid #ddd; border-radius: 6px; padding: 15px; background: white; }
.component-name { font-weight: bold; font-size: 16px; color: #007acc; }
.component-key { font-size: 12px; color: #666; margin-top: 5px; }
.component-tag { display: inline-block; font-size: 11px; background: #eef; border-radius: 3px; padding: 1px 6px; margin-right: 4px; }
.warnings { background: #fff3cd; border: 1px solid #ffe69c; border-radius: 6px; padding: 10px 15px; margin-bottom: 20px; }`

// Gallery renders the component index page.
func Gallery(p GalleryPage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		var b strings.Builder
		b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
		b.WriteString("  <meta charset=\"UTF-8\">\n")
		b.WriteString("  <title>Pagelume Components</title>\n")
		b.WriteString("  <style>\n" + galleryStyles + "\n  </style>\n")
		b.WriteString("</head>\n<body>\n<div class=\"container\">\n")
		b.WriteString("<h1>Pagelume Components</h1>\n")

		if len(p.Warnings) > 0 {
			b.WriteString("<div class=\"warnings\"><ul>\n")
			for _, warning := range p.Warnings {
				b.WriteString("<li>" + templ.EscapeString(warning) + "</li>\n")
			}
			b.WriteString("</ul></div>\n")
		}

		if len(p.Items) == 0 {
			b.WriteString("<p class=\"empty\">No components found.</p>\n")
		}

		b.WriteString("<div class=\"component-list\">\n")
		for _, item := range p.Items {
			href := templ.EscapeString("/preview/" + item.Type + "/" + item.Variation)
			b.WriteString("<div class=\"component-card\" data-component=\"" + templ.EscapeString(item.Key) + "\">\n")
			b.WriteString("  <a class=\"component-name\" href=\"" + href + "\">" + templ.EscapeString(item.Name) + "</a>\n")
			b.WriteString("  <div class=\"component-key\">" + templ.EscapeString(item.Key) +
				" &middot; " + strconv.Itoa(item.Fields) + " fields</div>\n")
			if item.Description != "" {
				b.WriteString("  <div class=\"component-description\">" + item.Description + "</div>\n")
			}
			for _, tag := range item.Tags {
				b.WriteString("  <span class=\"component-tag\">" + templ.EscapeString(tag) + "</span>\n")
			}
			if len(item.Vendors) > 0 {
				b.WriteString("  <div class=\"component-vendors\">Vendors: " + templ.EscapeString(strings.Join(item.Vendors, ", ")) + "</div>\n")
			}
			b.WriteString("</div>\n")
		}
		b.WriteString("</div>\n</div>\n")

		if p.HotReload {
			script, err := reloadScript("")
			if err != nil {
				return err
			}
			b.WriteString(script)
		}
		b.WriteString("</body>\n</html>\n")

		_, err := io.WriteString(w, b.String())
		return err
	})
}
