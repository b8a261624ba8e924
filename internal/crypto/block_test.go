package crypto

import (
	"bytes"
	"testing"
)

func TestBlockPrimitives(t *testing.T) {
	plaintext := []byte("exactly sixteen!plus a tail")

	for _, id := range SupportedCiphers() {
		keyLen := 32
		if size, err := KeySize(id); err == nil {
			keyLen = size
		}
		key := testKey(keyLen)
		iv := bytes.Repeat([]byte{9}, IVLength(id))

		for _, padding := range []Padding{PaddingPKCS7, PaddingZero} {
			ct, err := blockEncrypt(id, key, iv, plaintext, padding)
			if err != nil {
				t.Fatalf("%s: encrypt failed: %v", id, err)
			}
			pt, err := blockDecrypt(id, key, iv, ct, padding)
			if err != nil {
				t.Fatalf("%s: decrypt failed: %v", id, err)
			}
			if !bytes.Equal(pt, plaintext) {
				t.Errorf("%s: round trip mismatch: got %q", id, pt)
			}
		}
	}
}

func TestBlockEncrypt_Unsupported(t *testing.T) {
	if _, err := blockEncrypt("des-56-ecb", testKey(7), nil, []byte("x"), PaddingPKCS7); err != ErrUnsupportedCipher {
		t.Errorf("Expected ErrUnsupportedCipher, got %v", err)
	}
	if _, err := blockEncrypt("aes-256-cbc", testKey(32), []byte("short"), []byte("x"), PaddingPKCS7); err == nil {
		t.Error("Expected error for short IV")
	}
}

func TestPKCS7(t *testing.T) {
	for n := 0; n < 40; n++ {
		in := bytes.Repeat([]byte{'a'}, n)
		padded := pkcs7Pad(in, 16)
		if len(padded)%16 != 0 || len(padded) <= n {
			t.Fatalf("bad padded length %d for input %d", len(padded), n)
		}
		out, err := pkcs7Unpad(padded, 16)
		if err != nil {
			t.Fatalf("unpad failed for %d: %v", n, err)
		}
		if !bytes.Equal(out, in) {
			t.Errorf("unpad mismatch for %d", n)
		}
	}

	bad := append(bytes.Repeat([]byte{'a'}, 15), 0)
	if _, err := pkcs7Unpad(bad, 16); err != errBadPadding {
		t.Errorf("Expected errBadPadding for zero pad byte, got %v", err)
	}
	bad = append(bytes.Repeat([]byte{'a'}, 14), 3, 2)
	if _, err := pkcs7Unpad(bad, 16); err != errBadPadding {
		t.Errorf("Expected errBadPadding for inconsistent padding, got %v", err)
	}
}

func TestZeroPadding(t *testing.T) {
	if got := zeroPad(bytes.Repeat([]byte{1}, 16), 16); len(got) != 16 {
		t.Errorf("aligned input should not grow, got %d bytes", len(got))
	}
	if got := zeroPad([]byte{1, 2, 3}, 16); len(got) != 16 || got[15] != 0 {
		t.Errorf("unexpected zero padding %v", got)
	}
	if got := zeroUnpad([]byte{1, 2, '.', 0, 0, 0}); !bytes.Equal(got, []byte{1, 2, '.'}) {
		t.Errorf("unexpected zero unpad %v", got)
	}
}

func TestCBCDecrypt_Misaligned(t *testing.T) {
	iv := make([]byte, 16)
	if _, err := blockDecrypt("aes-256-cbc", testKey(32), iv, []byte{1, 2, 3}, PaddingPKCS7); err != errBadBlockSize {
		t.Errorf("Expected errBadBlockSize, got %v", err)
	}
}
