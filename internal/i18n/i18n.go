// Package i18n holds the login page copy in the two supported locales.
package i18n

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
)

const (
	Korean  = "ko"
	English = "en"
)

// Message keys
const (
	MsgEmptyEmail        = "emptyEmail"
	MsgEmptyUsername     = "emptyUsername"
	MsgEmptyPassword     = "emptyPassword"
	MsgLocked            = "locked"
	MsgLoginTitle        = "loginTitle"
	MsgEmailLabel        = "emailLabel"
	MsgUsernameLabel     = "usernameLabel"
	MsgPasswordLabel     = "passwordLabel"
	MsgRememberMe        = "rememberMe"
	MsgShowPassword      = "showPassword"
	MsgHidePassword      = "hidePassword"
	MsgDoLogIn           = "doLogIn"
	MsgForgotPassword    = "doForgotPassword"
	MsgRegister          = "doRegister"
	MsgSocialDivider     = "identity-provider-login-label"
	MsgErrorTitle        = "errorTitle"
	MsgUnexpectedError   = "unexpectedError"
	MsgBackToLogin       = "backToLogin"
	MsgBackToApplication = "backToApplication"
	MsgProceed           = "proceedWithAction"
	MsgApprovalTitle     = "approvalTitle"
	MsgApprovalPending   = "approvalPending"
	MsgRedirecting       = "redirecting"
	MsgContinue          = "doContinue"
	MsgRegisterTitle     = "registerTitle"
	MsgFirstName         = "firstName"
	MsgLastName          = "lastName"
	MsgPasswordConfirm   = "passwordConfirm"
	MsgUsernameGuide     = "usernameGuide"
	MsgPasswordGuide     = "passwordGuide"
)

var catalog = map[string]map[string]string{
	Korean: {
		MsgEmptyEmail:        "이메일을 입력해 주세요.",
		MsgEmptyUsername:     "아이디를 입력해 주세요.",
		MsgEmptyPassword:     "비밀번호를 입력해 주세요.",
		MsgLocked:            "로그인 시도 횟수를 초과했습니다. %s 후에 다시 시도해 주세요.",
		MsgLoginTitle:        "로그인",
		MsgEmailLabel:        "이메일",
		MsgUsernameLabel:     "아이디",
		MsgPasswordLabel:     "비밀번호",
		MsgRememberMe:        "아이디 저장",
		MsgShowPassword:      "비밀번호 보기",
		MsgHidePassword:      "비밀번호 숨기기",
		MsgDoLogIn:           "로그인",
		MsgForgotPassword:    "비밀번호를 잊으셨나요?",
		MsgRegister:          "회원가입",
		MsgSocialDivider:     "또는 다음으로 로그인",
		MsgErrorTitle:        "오류",
		MsgUnexpectedError:   "예기치 않은 오류가 발생했습니다.",
		MsgBackToLogin:       "로그인으로 돌아가기",
		MsgBackToApplication: "애플리케이션으로 돌아가기",
		MsgProceed:           "계속하려면 여기를 클릭하세요",
		MsgApprovalTitle:     "승인 대기 중",
		MsgApprovalPending:   "관리자의 승인을 기다리고 있습니다. 승인이 완료되면 로그인할 수 있습니다.",
		MsgRedirecting:       "로그인 서버로 이동 중입니다...",
		MsgContinue:          "계속",
		MsgRegisterTitle:     "회원가입",
		MsgFirstName:         "이름",
		MsgLastName:          "성",
		MsgPasswordConfirm:   "비밀번호 확인",
		MsgUsernameGuide:     "영문자, 숫자로 10자 이내로 입력해 주세요. (특수문자, 한글 입력 불가)",
		MsgPasswordGuide:     "영문 대소문자, 숫자, 특수문자 중 2가지 이상 10~16자 이내로 입력해 주세요.",
	},
	English: {
		MsgEmptyEmail:        "Please enter your email.",
		MsgEmptyUsername:     "Please enter your username.",
		MsgEmptyPassword:     "Please enter your password.",
		MsgLocked:            "Too many failed attempts. Please try again in %s.",
		MsgLoginTitle:        "Sign in",
		MsgEmailLabel:        "E-mail",
		MsgUsernameLabel:     "Username",
		MsgPasswordLabel:     "Password",
		MsgRememberMe:        "Remember me",
		MsgShowPassword:      "Show password",
		MsgHidePassword:      "Hide password",
		MsgDoLogIn:           "Sign in",
		MsgForgotPassword:    "Forgot password?",
		MsgRegister:          "Register",
		MsgSocialDivider:     "Or sign in with",
		MsgErrorTitle:        "Error",
		MsgUnexpectedError:   "An unexpected error occurred.",
		MsgBackToLogin:       "Back to login",
		MsgBackToApplication: "Back to application",
		MsgProceed:           "Click here to proceed",
		MsgApprovalTitle:     "Approval pending",
		MsgApprovalPending:   "Your account is waiting for administrator approval. You can sign in once it is approved.",
		MsgRedirecting:       "Redirecting to the login server...",
		MsgContinue:          "Continue",
		MsgRegisterTitle:     "Register",
		MsgFirstName:         "First name",
		MsgLastName:          "Last name",
		MsgPasswordConfirm:   "Confirm password",
		MsgUsernameGuide:     "Up to 10 letters or digits. No special characters.",
		MsgPasswordGuide:     "10 to 16 characters using at least two of upper case, lower case, digits and symbols.",
	},
}

// Normalize reduces a language tag to a supported locale, or "" when unsupported
func Normalize(locale string) string {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	switch base.String() {
	case Korean:
		return Korean
	case English:
		return English
	default:
		return ""
	}
}

// FromAcceptLanguage picks the locale from the browser's first preferred
// language, or "" when that language is not supported.
func FromAcceptLanguage(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return ""
	}
	return Normalize(tags[0].String())
}

// T returns the message for key in locale, falling back to Korean and then to key
func T(locale, key string, args ...any) string {
	msgs, ok := catalog[locale]
	if !ok {
		msgs = catalog[Korean]
	}
	msg, ok := msgs[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}

// FormatRemaining renders a lockout remainder as m:ss, rounding up to the second
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
