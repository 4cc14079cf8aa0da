// Package config provides configuration parsing for vbundle projects.
//
// The configuration is stored in vbundle.json at the project root. This
// package handles loading, validating and resolving it into an effective
// configuration per file.
//
// # Configuration File Structure
//
//	{
//	  "name": "my-app",
//	  "input": "src",
//	  "output": "dist",
//	  "cache": {
//	    "enabled": true,
//	    "dir": ".vbundle-cache"
//	  },
//	  "images": {
//	    "targetFormats": ["webp", "jpeg"],
//	    "quality": 0.8,
//	    "resize": true,
//	    "maxSize": 1920
//	  },
//	  "minify": {
//	    "enabled": true
//	  },
//	  "overrides": [
//	    { "pattern": "icons/*.svg", "settings": { "minify": { "keepComments": true } } },
//	    { "pattern": "**/*.psd", "remove": true }
//	  ]
//	}
//
// # Overrides
//
// Override rules apply in declaration order to every file whose logical
// path matches the rule's glob. Later rules win on conflicting leaf keys.
// Array values (targetFormats, sizes, breakpoints, sizeHints) are replaced
// wholesale; objects merge key by key. A rule with "remove": true marks the
// file for deletion, and no later rule can clear the mark.
//
// Unknown keys anywhere in the file are rejected.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resolver, _ := config.NewResolver(cfg, 0)
//	eff := resolver.Resolve("img/hero.jpg")
//	fmt.Println(eff.Images.Quality)
package config
