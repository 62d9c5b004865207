// Package prompt assembles prompts from templates and persona profiles.
//
// A Cache is constructed once per process over a template directory and
// injected where needed; it parses <dir>/<name>.tmpl on first use and, when
// Watch is running, drops entries whose files change. Templates render with
// missingkey=error so an unfilled placeholder never reaches the model.
//
//	cache, err := prompt.NewCache("templates")
//	if err != nil {
//	    return err
//	}
//	defer cache.Close()
//
//	text, err := prompt.NewAssembler(cache).Assemble("description", map[string]interface{}{
//	    "subject":      "Aluminum 6061",
//	    "target_words": 150,
//	})
package prompt
