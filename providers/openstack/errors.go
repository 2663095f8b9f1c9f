package openstack

import (
	"strings"

	"github.com/SebastienDorgan/anynodes/api"
	gc "github.com/gophercloud/gophercloud"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

//responseCode returns the HTTP status code and body of a gophercloud error
func responseCode(err error) (int, []byte, bool) {
	switch e := err.(type) {
	case gc.ErrDefault400:
		return 400, e.Body, true
	case *gc.ErrDefault400:
		return 400, e.Body, true
	case gc.ErrDefault401:
		return 401, e.Body, true
	case *gc.ErrDefault401:
		return 401, e.Body, true
	case gc.ErrDefault403:
		return 403, e.Body, true
	case *gc.ErrDefault403:
		return 403, e.Body, true
	case gc.ErrDefault404:
		return 404, e.Body, true
	case *gc.ErrDefault404:
		return 404, e.Body, true
	case gc.ErrDefault409:
		return 409, e.Body, true
	case *gc.ErrDefault409:
		return 409, e.Body, true
	case gc.ErrDefault500:
		return 500, e.Body, true
	case *gc.ErrDefault500:
		return 500, e.Body, true
	case gc.ErrUnexpectedResponseCode:
		return e.Actual, e.Body, true
	case *gc.ErrUnexpectedResponseCode:
		return e.Actual, e.Body, true
	default:
		return 0, nil, false
	}
}

//faultMessage extracts the message of an OpenStack fault body.
//Nova wraps it in an object named after the fault (badRequest, itemNotFound, forbidden, ...),
//Neutron uses NeutronError.
func faultMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return strings.TrimSpace(string(body))
	}
	msg := gjson.GetBytes(body, "NeutronError.message")
	if msg.Exists() {
		return msg.String()
	}
	var res string
	gjson.ParseBytes(body).ForEach(func(key, value gjson.Result) bool {
		if m := value.Get("message"); m.Exists() {
			res = m.String()
			return false
		}
		return true
	})
	if res == "" {
		return strings.TrimSpace(string(body))
	}
	return res
}

//neutronFaultType returns the type of a Neutron fault (IpAddressGenerationFailure, OverQuota, ...)
func neutronFaultType(body []byte) string {
	return gjson.GetBytes(body, "NeutronError.type").String()
}

//ProviderError creates an error string from openstack api error
func ProviderError(err error) error {
	if err == nil {
		return nil
	}
	code, body, ok := responseCode(err)
	if !ok {
		return err
	}
	return errors.Errorf("code: %d, reason: %s", code, faultMessage(body))
}

//isAlreadyExists tells if err reports a name collision
func isAlreadyExists(err error) bool {
	code, body, ok := responseCode(err)
	if !ok || (code != 400 && code != 409) {
		return false
	}
	return strings.Contains(strings.ToLower(faultMessage(body)), "already exists")
}

//isDuplicateRule tells if err reports a rule identical to an existing one
func isDuplicateRule(err error) bool {
	code, body, ok := responseCode(err)
	if !ok || (code != 400 && code != 409) {
		return false
	}
	if neutronFaultType(body) == "SecurityGroupRuleExists" {
		return true
	}
	msg := strings.ToLower(faultMessage(body))
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate")
}

//isExhausted tells if err reports that no floating ip can be allocated
func isExhausted(err error) bool {
	code, body, ok := responseCode(err)
	if !ok {
		return false
	}
	switch neutronFaultType(body) {
	case "IpAddressGenerationFailure", "OverQuota", "ExternalIpAddressExhausted":
		return true
	}
	msg := strings.ToLower(faultMessage(body))
	switch code {
	case 403, 413:
		return strings.Contains(msg, "quota")
	case 404:
		return strings.Contains(msg, "no more floating ips")
	case 409:
		return strings.Contains(msg, "no more ip addresses") || strings.Contains(msg, "quota")
	}
	return false
}

//isNotFound tells if err is a 404
func isNotFound(err error) bool {
	code, _, ok := responseCode(err)
	return ok && code == 404
}

//classify maps a gophercloud error onto the api error kinds
func classify(err error, kind string, id string) error {
	if err == nil {
		return nil
	}
	if isExhausted(err) {
		return api.NewResourceExhaustedError(ProviderError(err), kind)
	}
	if isNotFound(err) {
		return api.NewNotFoundError(ProviderError(err), kind, id)
	}
	return ProviderError(err)
}
