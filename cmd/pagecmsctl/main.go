// Command pagecmsctl edits the settings of a running pagecms server.
package main

import "github.com/dalemusser/pagecms/internal/app/cli"

func main() {
	cli.Execute()
}
