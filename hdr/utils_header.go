/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package hdr

func isASCIISpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// validHeaderFieldByte reports whether b is a valid byte in a header
// field name (RFC 7230 tchar).
func validHeaderFieldByte(b byte) bool {
	return int(b) < len(isTokenTable) && isTokenTable[b]
}

// canonicalMIMEHeaderKey is like CanonicalHeaderKey but is allowed to
// mutate the provided byte slice before returning the string.
func canonicalMIMEHeaderKey(a []byte) string {
	for _, c := range a {
		if validHeaderFieldByte(c) {
			continue
		}
		return string(a)
	}

	upper := true
	for i, c := range a {
		if upper && 'a' <= c && c <= 'z' {
			c -= toLower
		} else if !upper && 'A' <= c && c <= 'Z' {
			c += toLower
		}
		a[i] = c
		upper = c == '-'
	}
	if v := commonHeader[string(a)]; v != "" {
		return v
	}
	return string(a)
}

func isLWS(b byte) bool { return b == ' ' || b == '\t' }

func isCTL(b byte) bool {
	const del = 0x7f
	return b < ' ' || b == del
}

func init() {
	for _, v := range []string{
		Accept, AcceptCharset, AcceptEncoding, AcceptLanguage, AcceptRanges,
		Authorization, CacheControl, Cc, Connection, ContentEncoding, ContentId,
		ContentLanguage, ContentLength, ContentRange, ContentTransferEncoding,
		ContentType, CookieHeader, Date, DkimSignature, Etag, Expires, Expect,
		From, Host, IfModifiedSince, IfNoneMatch, InReplyTo, LastModified,
		Location, MessageId, MimeVersion, Pragma, ProxyAuthenticate,
		ProxyAuthorization, Received, Referer, ReturnPath, ServerHeader,
		SetCookieHeader, Subject, TransferEncoding, To, Trailer, UpgradeHeader,
		UserAgent, Via, WwwAuthenticate, XForwardedFor, XImforwards, XPoweredBy,
	} {
		commonHeader[v] = v
	}
}
