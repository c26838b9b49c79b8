package sec

import (
	"os"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

const testKey = "0123456789abcdef0123456789abcdef"

var _ = Describe("Cipher", func() {
	var c *Cipher

	BeforeEach(func() {
		var err error
		c, err = NewCipherBase64([]byte(testKey))
		Expect(err).ToNot(HaveOccurred())
	})

	It("should round trip sealed values", func() {
		sealed, err := c.Seal("tiger")
		Expect(err).ToNot(HaveOccurred())
		Expect(sealed).To(HavePrefix(SealedPrefix))
		Expect(sealed).ToNot(ContainSubstring("tiger"))
		Expect(c.Reveal(sealed)).To(Equal("tiger"))
	})

	It("should use a fresh nonce per seal", func() {
		a, _ := c.Seal("tiger")
		b, _ := c.Seal("tiger")
		Expect(a).ToNot(Equal(b))
	})

	It("should pass plain values through", func() {
		Expect(c.Reveal("plain")).To(Equal("plain"))
		var none *Cipher
		Expect(none.Reveal("plain")).To(Equal("plain"))
	})

	It("should refuse sealed values without a key", func() {
		sealed, _ := c.Seal("tiger")
		var none *Cipher
		_, err := none.Reveal(sealed)
		Expect(err).To(HaveOccurred())
	})

	It("should detect tampering", func() {
		sealed, _ := c.Seal("tiger")
		b := []byte(sealed)
		i := len(SealedPrefix) + 5
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
		_, err := c.Reveal(string(b))
		Expect(err).To(HaveOccurred())
	})

	It("should reject short input", func() {
		_, err := c.DecodeDecrypt("AAAA")
		Expect(err).To(MatchError(ErrCiphertextTooShort))
	})

	It("should reject a bad key size", func() {
		_, err := NewCipherBase64([]byte("short"))
		Expect(err).To(MatchError(ContainSubstring("32 bytes")))
	})

	It("should load the key from the environment", func() {
		Expect(os.Setenv("GWSQL_TEST_KEY", testKey)).To(Succeed())
		defer os.Unsetenv("GWSQL_TEST_KEY")
		fromEnv, err := NewCipherFromEnv("GWSQL_TEST_KEY")
		Expect(err).ToNot(HaveOccurred())
		sealed, _ := c.Seal("x")
		Expect(fromEnv.Reveal(sealed)).To(Equal("x"))

		missing, err := NewCipherFromEnv("GWSQL_TEST_KEY_MISSING")
		Expect(err).ToNot(HaveOccurred())
		Expect(missing).To(BeNil())
	})
})
