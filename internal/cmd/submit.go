package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/shrimptech/internal/domain"
	"github.com/dukerupert/shrimptech/internal/submit"
)

func newSubmitCmd(opts *options) *cobra.Command {
	var sub domain.ContactSubmission

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Send a contact form",
		Long: `Send a contact form to the first endpoint that accepts it.

The form is validated first, with the same rules as the website
(phone numbers must be Vietnamese mobile numbers). If no endpoint
accepts the form after every retry, your mail client is opened with
the message pre-filled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.controller()
			if err != nil {
				return err
			}

			res, err := c.SubmitContact(cmd.Context(), sub)
			return opts.report(res, err)
		},
	}

	f := cmd.Flags()
	f.StringVar(&sub.Name, "name", "", "your name")
	f.StringVar(&sub.Email, "email", "", "your email address")
	f.StringVar(&sub.Phone, "phone", "", "your mobile number")
	f.StringVar(&sub.Company, "company", "", "your company (optional)")
	f.StringVarP(&sub.Message, "message", "m", "", "the message")
	f.StringVar(&sub.Source, "source", "CLI", "where the submission comes from")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}

func newNewsletterCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "newsletter EMAIL",
		Short: "Subscribe an address to the newsletter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.controller()
			if err != nil {
				return err
			}

			res, err := c.Subscribe(cmd.Context(), args[0])
			return opts.report(res, err)
		},
	}
}

// report prints the outcome. A fallback still exits non-zero so scripts can
// tell the form was not delivered.
func (o *options) report(res *submit.Result, err error) error {
	switch {
	case err == nil:
		fmt.Fprintf(o.stdout, "✓ Delivered via %s (%s)\n", res.Endpoint.Name, res.Endpoint.URL)
		return nil
	case errors.Is(err, submit.ErrDeliveryFailed):
		return fmt.Errorf("not delivered after %d requests (fallback: %s)", res.Requests, res.Fallback)
	case domain.IsCode(err, domain.EINVALID):
		return errors.New(domain.ErrorMessage(err))
	default:
		return err
	}
}
