// Command yolokit converts COCO annotations to YOLO label files and reports on the health of YOLO
// datasets.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
)

func main() {
	a := newApp(afero.NewOsFs())
	root := a.rootCommand()

	err := root.Execute()
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
