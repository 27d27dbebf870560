// Package challenge sends second-factor pushes through the Duo Auth API.
package challenge

import (
	"context"
	"fmt"
	"net/url"

	duoapi "github.com/duosecurity/duo_api_golang"
	"github.com/duosecurity/duo_api_golang/authapi"
)

const (
	ResultAllow = "allow"

	userAgent = "google-admin-bridge"
)

// Outcome is the provider's answer to a push.
type Outcome struct {
	Result  string
	Status  string
	Message string
}

// Allowed reports whether the user approved the push.
func (o Outcome) Allowed() bool {
	return o.Result == ResultAllow
}

// Challenger issues a push to user's registered device and blocks until answered.
type Challenger interface {
	Push(ctx context.Context, user string) (Outcome, error)
}

// authAPI is the subset of *authapi.AuthApi used here.
type authAPI interface {
	Auth(factor string, options ...func(*url.Values)) (*authapi.AuthResult, error)
}

// Duo pushes with factor=auto to the user's first capable device.
type Duo struct {
	api authAPI
}

func NewDuo(ikey, skey, host string) *Duo {
	return &Duo{api: authapi.NewAuthApi(*duoapi.NewDuoApi(ikey, skey, host, userAgent))}
}

// Push blocks until Duo answers. The Duo client has no context support, so ctx only
// short-circuits a push that has not been sent yet.
func (d *Duo) Push(ctx context.Context, user string) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	res, err := d.api.Auth("auto",
		authapi.AuthUsername(user),
		authapi.AuthDevice("auto"),
	)
	if err != nil {
		return Outcome{}, fmt.Errorf("duo auth request failed: %w", err)
	}
	if res.Stat != "OK" {
		msg := "unknown error"
		if res.Message != nil {
			msg = *res.Message
		}
		if res.Message_Detail != nil {
			msg += ": " + *res.Message_Detail
		}
		return Outcome{}, fmt.Errorf("duo auth failed: %s", msg)
	}

	return Outcome{
		Result:  res.Response.Result,
		Status:  res.Response.Status,
		Message: res.Response.Status_Msg,
	}, nil
}
