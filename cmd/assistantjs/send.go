package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Vovarama1992/assistantjs-go/pkg/assistantjs"
)

func newSendCmd(f *rootFlags) *cobra.Command {
	var assistant string
	var meta map[string]string

	cmd := &cobra.Command{
		Use:   "send MESSAGE...",
		Short: "Send one message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := f.connect(cmd)
			if err != nil {
				return err
			}
			reply, err := c.Send(cmd.Context(), assistantjs.SendOptions{
				AssistantID: assistant,
				Message:     strings.Join(args, " "),
				Metadata:    toAnyMap(meta),
			})
			if err != nil {
				return err
			}
			return f.render(cmd.OutOrStdout(), reply, func(w io.Writer) {
				fmt.Fprintln(w, reply.Message)
			})
		},
	}
	cmd.Flags().StringVarP(&assistant, "assistant", "a", "", "assistant name")
	cmd.Flags().StringToStringVarP(&meta, "meta", "m", nil, "metadata key=value pairs")
	_ = cmd.MarkFlagRequired("assistant")
	return cmd
}

func newChatCmd(f *rootFlags) *cobra.Command {
	var assistant string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with an assistant interactively (/quit to leave)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := f.connect(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "connected to %s, talking to %s\n", c.GetProjectInfo().Name, assistant)

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				switch line {
				case "":
					continue
				case "/quit", "/exit":
					return nil
				}

				reply, err := c.Send(cmd.Context(), assistantjs.SendOptions{
					AssistantID: assistant,
					Message:     line,
				})
				if err != nil {
					// Validation and rate limits are recoverable in a chat loop.
					fmt.Fprintln(cmd.ErrOrStderr(), err)
					if assistantjs.KindOf(err) == assistantjs.KindNotInitialized {
						return err
					}
					continue
				}
				fmt.Fprintln(out, reply.Message)
			}
		},
	}
	cmd.Flags().StringVarP(&assistant, "assistant", "a", "", "assistant name")
	_ = cmd.MarkFlagRequired("assistant")
	return cmd
}

func toAnyMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
