package git

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyPushOutput(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   PushErrorKind
	}{
		{"publickey", "git@github.com: Permission denied (publickey).\nfatal: Could not read from remote repository.", PushErrorAuth},
		{"https auth", "remote: Invalid username or password.\nfatal: Authentication failed for 'https://github.com/o/r.git/'", PushErrorAuth},
		{"host key", "Host key verification failed.", PushErrorAuth},
		{"dns", "ssh: Could not resolve hostname github.com: Name or service not known\nfatal: Could not read from remote repository.", PushErrorNetwork},
		{"https dns", "fatal: unable to access 'https://github.com/o/r.git/': Could not resolve host: github.com", PushErrorNetwork},
		{"refused", "ssh: connect to host github.com port 22: Connection refused", PushErrorNetwork},
		{"non fast forward", " ! [rejected]        main -> main (fetch first)\nerror: failed to push some refs", PushErrorNonFastForward},
		{"hook", "remote: error: GH013: Repository rule violations found", PushErrorOther},
		{"empty", "", PushErrorOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyPushOutput(tt.output))
		})
	}
}

func TestPushError(t *testing.T) {
	cause := errors.New("exit status 128")

	withOutput := &PushError{Kind: PushErrorNetwork, Output: "Connection refused", Err: cause}
	assert.Equal(t, "git push failed (network): Connection refused", withOutput.Error())
	assert.ErrorIs(t, withOutput, cause)

	bare := &PushError{Kind: PushErrorOther, Err: cause}
	assert.Equal(t, "git push failed (other): exit status 128", bare.Error())

	for _, kind := range []PushErrorKind{PushErrorOther, PushErrorAuth, PushErrorNetwork, PushErrorNonFastForward} {
		assert.NotEmpty(t, (&PushError{Kind: kind}).Hint(), kind.String())
	}
	assert.Contains(t, (&PushError{Kind: PushErrorAuth}).Hint(), "autopush diagnose")
}
