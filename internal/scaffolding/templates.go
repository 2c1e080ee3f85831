package scaffolding

import "github.com/conneroisu/pagelume/internal/types"

// ComponentTemplate is the starting point for a new component. HTML, SCSS
// and Script are text/template sources using [[ ]] delimiters so the
// component's own {{ }} expressions pass through untouched.
type ComponentTemplate struct {
	Name        string
	Description string
	HTML        string
	SCSS        string
	Script      string
	Fields      []types.Field
}

// TemplateContext is the data available to template sources.
type TemplateContext struct {
	Type      string
	Variation string
	// Class is the root CSS class, "<variation>-<type>"
	Class string
	// VendorsAttr is the data-pagelume-vendors attribute, or ""
	VendorsAttr string
	// GlobalImports is true when the global SCSS partials exist
	GlobalImports bool
}

func textField(name, label string, def interface{}) types.Field {
	return types.Field{Name: name, Kind: types.KindText, Label: label, Default: def, HasDefault: def != nil}
}

// GetBuiltinTemplates returns the built-in component templates by name.
func GetBuiltinTemplates() map[string]ComponentTemplate {
	return map[string]ComponentTemplate{
		"default": getDefaultTemplate(),
		"header":  getHeaderTemplate(),
		"hero":    getHeroTemplate(),
	}
}

const imports = `[[if .GlobalImports]]@import "variables";
@import "mixins";

[[end]]`

const readyScript = `(function () {
  'use strict';

  if (window.Pagelume && window.Pagelume.events) {
    window.Pagelume.events.on('ready', function () {
      console.log('[[.Variation]] [[.Type]] component initialized');
    });
  }
})();
`

func getDefaultTemplate() ComponentTemplate {
	return ComponentTemplate{
		Name:        "default",
		Description: "A section with a single text field",
		HTML: `<section class="[[.Class]]" data-pagelume-component="[[.Type]]"[[.VendorsAttr]]>
  <div class="container">
    <div class="content">
      {{content}}
    </div>
  </div>
</section>
`,
		SCSS: imports + `.[[.Class]] {
  padding: 4rem 0;

  .content {
    margin: 0 auto;
  }
}
`,
		Script: readyScript,
		Fields: []types.Field{textField("content", "Content", "Sample content")},
	}
}

func getHeaderTemplate() ComponentTemplate {
	return ComponentTemplate{
		Name:        "header",
		Description: "Site header with a brand and a menu",
		HTML: `<header class="[[.Class]]" data-pagelume-component="Header"[[.VendorsAttr]]>
  <div class="container">
    <nav class="navbar">
      <div class="navbar-brand">
        {{#if logo}}
        <img src="{{logo}}" alt="{{siteName}}" class="logo">
        {{else}}
        <span class="site-name">{{siteName}}</span>
        {{/if}}
      </div>
      <ul class="navbar-menu">
        {{#each menuItems}}
        <li class="menu-item"><a href="{{this.url}}" class="menu-link">{{this.label}}</a></li>
        {{/each}}
      </ul>
      <button class="mobile-menu-toggle" aria-label="Toggle menu">
        <span></span>
        <span></span>
        <span></span>
      </button>
    </nav>
  </div>
</header>
`,
		SCSS: imports + `.[[.Class]] {
  position: sticky;
  top: 0;
[[- if .GlobalImports]]
  background-color: $white;

  .navbar {
    @include flex-between;
    padding: $spacer 0;
  }

  .site-name {
    font-weight: $font-weight-bold;
    color: $primary;
  }

  .navbar-menu {
    display: none;

    @include md-up {
      display: flex;
    }
  }
[[- else]]
  background-color: #fff;

  .navbar {
    display: flex;
    align-items: center;
    justify-content: space-between;
  }

  .navbar-menu {
    display: flex;
  }
[[- end]]

  .navbar-menu {
    list-style: none;
    margin: 0;
    padding: 0;
    gap: 2rem;
  }

  .logo {
    height: 40px;
    width: auto;
  }
}
`,
		Script: `(function () {
  'use strict';

  if (window.Pagelume && window.Pagelume.events) {
    window.Pagelume.events.on('ready', function () {
      var toggle = document.querySelector('.[[.Class]] .mobile-menu-toggle');
      var menu = document.querySelector('.[[.Class]] .navbar-menu');
      if (toggle && menu) {
        toggle.addEventListener('click', function () {
          menu.classList.toggle('active');
          toggle.classList.toggle('active');
        });
      }
    });
  }
})();
`,
		Fields: []types.Field{
			textField("siteName", "Site name", "My Site"),
			{Name: "logo", Kind: types.KindImage, Label: "Logo"},
			{
				Name: "menuItems", Kind: types.KindList, Label: "Menu items", HasDefault: true,
				Default: []interface{}{
					map[string]interface{}{"label": "Home", "url": "/"},
					map[string]interface{}{"label": "About", "url": "/about"},
				},
			},
		},
	}
}

func getHeroTemplate() ComponentTemplate {
	return ComponentTemplate{
		Name:        "hero",
		Description: "Full-width hero with a title, subtitle and background",
		HTML: `<section class="[[.Class]]" data-pagelume-component="Hero"[[.VendorsAttr]]>
  <div class="container">
    <div class="hero-content">
      <h1 class="hero-title">{{title}}</h1>
      {{#if subtitle}}
      <p class="hero-subtitle">{{subtitle}}</p>
      {{/if}}
    </div>
    {{#if backgroundImage}}
    <div class="hero-background">
      <img src="{{backgroundImage}}" alt="">
    </div>
    {{/if}}
  </div>
</section>
`,
		SCSS: imports + `.[[.Class]] {
  position: relative;
  padding: 6rem 0;
  overflow: hidden;

  .hero-content {
    position: relative;
    z-index: 2;
    text-align: center;
    max-width: 800px;
    margin: 0 auto;
  }
[[- if .GlobalImports]]

  .hero-subtitle {
    font-size: $font-size-lg;
    color: $gray-600;
  }
[[- end]]

  .hero-background {
    position: absolute;
    top: 0;
    left: 0;
    width: 100%;
    height: 100%;
    z-index: 1;

    img {
      width: 100%;
      height: 100%;
      object-fit: cover;
    }
  }
}
`,
		Script: readyScript,
		Fields: []types.Field{
			textField("title", "Title", "Build something great"),
			{Name: "subtitle", Kind: types.KindMultilineText, Label: "Subtitle", Default: "A short supporting sentence.", HasDefault: true},
			{Name: "backgroundImage", Kind: types.KindImage, Label: "Background image"},
		},
	}
}
