// Package nbtlai translates the prose of Jupyter notebooks.
//
// Each markdown and code cell is split into spans by a ContentProcessor.
// Translatable spans (sentences in markdown, comments and message strings
// in code) are sent to a Backend; protected spans (math, fenced code,
// inline code, link targets, HTML, code) are copied through unchanged.
// Every other field of the notebook is preserved.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/ZaguanLabs/nbtlai"
//	    "github.com/ZaguanLabs/nbtlai/cache"
//	    "github.com/ZaguanLabs/nbtlai/notebook"
//	    "github.com/ZaguanLabs/nbtlai/processor"
//	    "github.com/ZaguanLabs/nbtlai/provider"
//	)
//
//	func main() {
//	    ctx := context.Background()
//
//	    backend, err := provider.New(ctx, "google", provider.Config{})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    opts := []nbtlai.TranslatorOption{
//	        nbtlai.WithCache(cache.NewInMemoryCache(0)),
//	    }
//	    for _, p := range processor.Defaults() {
//	        opts = append(opts, nbtlai.WithProcessor(p))
//	    }
//
//	    t, err := nbtlai.NewTranslator("pt-BR", backend, opts...)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    doc, err := notebook.ReadFile("lesson.ipynb")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    result, err := t.TranslateDocument(ctx, doc)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    _ = notebook.WriteFile("lesson_pt-BR.ipynb", result.Document, notebook.MarshalOptions{})
//	}
package nbtlai
