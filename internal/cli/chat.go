package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Muffins-Corp/muffinscorp-go/internal/domain"
	"github.com/Muffins-Corp/muffinscorp-go/muffins"
)

type chatCommander struct {
	model    string
	system   string
	noStream bool
}

const chatLongDesc string = `Send a prompt to the chat API and print the answer.

The response is streamed as it arrives unless --no-stream is given. When the
stream ends without a completion marker a warning is printed, since the answer
may be truncated.

Example:
  muffins chat "What is the capital of France?"
  muffins chat --system "You are a helpful assistant." "Write a short poem about programming."
  muffins chat --model chat-model-large --no-stream "Summarise Go interfaces"`

const chatShortDesc string = "Chat with a MuffinsCorp model"

func newChatCmd(a *app) *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat <prompt...>",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, a, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVarP(&cmder.model, "model", "m", "", "Model to use (defaults to MUFFINS_MODEL)")
	cmd.Flags().StringVarP(&cmder.system, "system", "s", "", "System prompt")
	cmd.Flags().BoolVar(&cmder.noStream, "no-stream", false, "Wait for the full response instead of streaming")

	return cmd
}

func (c *chatCommander) request(a *app, prompt string) muffins.ChatRequest {
	var messages []muffins.Message
	if c.system != "" {
		messages = append(messages, muffins.SystemMessage(c.system))
	}
	messages = append(messages, muffins.UserMessage(prompt))

	model := c.model
	if model == "" {
		model = a.cfg.API.Model
	}
	return muffins.ChatRequest{Messages: messages, Model: model}
}

func (c *chatCommander) run(cmd *cobra.Command, a *app, prompt string) error {
	req := c.request(a, prompt)
	out := cmd.OutOrStdout()

	var (
		tr  *domain.Transcript
		err error
	)
	if c.noStream {
		tr, err = a.chat.Complete(cmd.Context(), req, out)
	} else {
		tr, err = a.chat.Stream(cmd.Context(), req, out)
	}
	if tr != nil && tr.Response != "" {
		fmt.Fprintln(out)
	}
	if err != nil {
		return describe(err)
	}

	if tr.Termination == domain.TerminationAmbiguous {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: stream ended without a completion marker, the response may be truncated")
	}
	if tr.DecodeErrors > 0 {
		a.logger.Debug("skipped undecodable frames", zap.Int("count", tr.DecodeErrors))
	}
	return nil
}

// describe adds a hint for the errors a user can act on.
func describe(err error) error {
	var apiErr *muffins.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Kind == muffins.KindAuthentication:
		return fmt.Errorf("%w: check MUFFINS_API_KEY", err)
	case errors.As(err, &apiErr) && apiErr.Kind == muffins.KindCredit:
		return fmt.Errorf("%w: %.2f credits remaining", err, apiErr.CreditsRemaining)
	case errors.Is(err, muffins.ErrRateLimited):
		return fmt.Errorf("%w: raise RATE_LIMIT_PER_MINUTE or retry later", err)
	}
	return err
}
