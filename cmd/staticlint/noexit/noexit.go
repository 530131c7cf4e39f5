// Package noexit reports calls that terminate the process from main.main,
// skipping deferred cleanup such as closing the credential store or
// flushing the logger.
package noexit

import (
	"go/ast"
	"go/types"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/analysis"
)

// Analyzer flags os.Exit and log.Fatal* inside main.main.
var Analyzer = &analysis.Analyzer{
	Name: "noexit",
	Doc:  "prohibits os.Exit and log.Fatal* in main.main",
	Run:  run,
}

var forbidden = map[string][]string{
	"os":  {"Exit"},
	"log": {"Fatal", "Fatalf", "Fatalln"},
}

func run(pass *analysis.Pass) (interface{}, error) {
	if pass.Pkg.Name() != "main" {
		return nil, nil
	}

	for _, file := range pass.Files {
		if isGoBuildCacheFile(pass.Fset.File(file.Pos()).Name()) {
			continue
		}

		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Name.Name != "main" || fn.Recv != nil || fn.Body == nil {
				continue
			}

			ast.Inspect(fn.Body, func(n ast.Node) bool {
				call, ok := n.(*ast.CallExpr)
				if !ok {
					return true
				}

				if name, ok := forbiddenCallee(pass, call); ok {
					pass.Reportf(call.Pos(), "avoid using %s in main.main", name)
				}

				return true
			})
		}
	}

	return nil, nil
}

// forbiddenCallee resolves the callee through type information, so renamed
// imports are caught as well.
func forbiddenCallee(pass *analysis.Pass, call *ast.CallExpr) (string, bool) {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return "", false
	}

	fn, ok := pass.TypesInfo.Uses[sel.Sel].(*types.Func)
	if !ok || fn.Pkg() == nil {
		return "", false
	}

	for _, name := range forbidden[fn.Pkg().Path()] {
		if fn.Name() == name {
			return fn.Pkg().Path() + "." + name, true
		}
	}

	return "", false
}

func isGoBuildCacheFile(path string) bool {
	path = filepath.ToSlash(path)
	return strings.Contains(path, "/go-build/")
}
