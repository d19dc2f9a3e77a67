package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Prompt asks for the start page, end page and retry count on in/out,
// storing the answers in c. An empty answer keeps the field's default. Any
// non-numeric answer resets all three fields to their defaults. The result
// goes through Validate, and every notice is written to out.
func (c *Config) Prompt(in io.Reader, out io.Writer) {
	def := Default()
	r := bufio.NewReader(in)

	questions := []struct {
		label string
		dst   *int
		def   int
	}{
		{"Enter start page number", &c.StartPage, def.StartPage},
		{"Enter end page number", &c.EndPage, def.EndPage},
		{"Enter maximum retry attempts per item", &c.MaxRetries, def.MaxRetries},
	}

	answers := make([]int, len(questions))
	for i, q := range questions {
		fmt.Fprintf(out, "%s (default %d): ", q.label, q.def)
		line, _ := r.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" {
			answers[i] = q.def
			continue
		}
		n, err := strconv.Atoi(line)
		if err != nil {
			fmt.Fprintf(out, "Invalid input, using default values: pages %d-%d with %d retries per item\n",
				def.StartPage, def.EndPage, def.MaxRetries)
			c.StartPage, c.EndPage, c.MaxRetries = def.StartPage, def.EndPage, def.MaxRetries
			return
		}
		answers[i] = n
	}

	for i, q := range questions {
		*q.dst = answers[i]
	}
	for _, notice := range c.Validate() {
		fmt.Fprintln(out, notice)
	}
}
