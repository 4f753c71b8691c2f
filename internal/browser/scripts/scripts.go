// File: internal/browser/scripts/scripts.go

// Package scripts holds the JavaScript injected into live pages. The
// scripts only observe and relay; every decision (what to remove, when
// to redirect) stays on the Go side, with one exception: suppressing the
// default click handling for new-window anchors must happen
// synchronously inside the browser, so the sentinel is baked into the
// relay at install time.
package scripts

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// jsEncode renders v as a JavaScript literal safe for script templating.
func jsEncode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// Only strings and flat structs pass through here.
		return "null"
	}
	return string(b)
}

// helpers is prepended to every relay script. xpathOf mirrors the Go
// side's XPath generation: anchored on the nearest ancestor ID,
// positional otherwise, so handles agree across the wire.
const helpers = `
const xpathOf = (node) => {
	if (!node || node.nodeType !== Node.ELEMENT_NODE) return '';
	const path = [];
	for (let n = node; n && n.nodeType === Node.ELEMENT_NODE; n = n.parentElement) {
		const tag = n.tagName.toLowerCase();
		const id = n.getAttribute('id');
		if (id) {
			path.push("//*[@id='" + id + "']");
			break;
		}
		let index = 1;
		for (let prev = n.previousElementSibling; prev; prev = prev.previousElementSibling) {
			if (prev.tagName === n.tagName) index++;
		}
		path.push(tag + '[' + index + ']');
	}
	if (path.length === 0) return '/';
	path.reverse();
	let xpath = path.join('/');
	if (!xpath.startsWith("//*[@id=")) xpath = '/' + xpath;
	return xpath;
};
const describe = (el) => ({
	tag: el.tagName.toLowerCase(),
	id: el.getAttribute('id') || '',
	class: el.getAttribute('class') || '',
	ariaLabel: el.getAttribute('aria-label') || '',
	xpath: xpathOf(el),
});
`

// Bootstrap returns the persistent script installed on every new
// document: a MutationObserver relaying coalesced change batches and a
// capturing document-level click listener relaying navigation gestures.
// Both post JSON through the named binding.
func Bootstrap(binding, sentinel string) string {
	return fmt.Sprintf(`(() => {
if (window.__pageprepInstalled) return;
window.__pageprepInstalled = true;
%s
const post = (msg) => { try { window[%s](JSON.stringify(msg)); } catch (e) {} };

const recordsOf = (mutations) => {
	const records = [];
	for (const m of mutations) {
		if (m.type === 'childList') {
			for (const n of m.addedNodes) {
				if (n.nodeType !== Node.ELEMENT_NODE) continue;
				records.push({op: 'insert', xpath: xpathOf(n), tag: n.tagName.toLowerCase(), class: n.getAttribute('class') || ''});
			}
			for (const n of m.removedNodes) {
				if (n.nodeType !== Node.ELEMENT_NODE) continue;
				records.push({op: 'remove', tag: n.tagName.toLowerCase(), class: n.getAttribute('class') || ''});
			}
		} else if (m.type === 'attributes' && m.target.nodeType === Node.ELEMENT_NODE) {
			records.push({op: 'attr', xpath: xpathOf(m.target), tag: m.target.tagName.toLowerCase(), class: m.target.getAttribute('class') || ''});
		}
	}
	return records;
};

const observe = () => {
	const root = document.documentElement;
	if (!root) return false;
	const observer = new MutationObserver((mutations) => {
		const records = recordsOf(mutations);
		if (records.length) post({kind: 'mutations', records: records});
	});
	observer.observe(root, {childList: true, subtree: true, attributes: true, attributeFilter: ['class']});
	return true;
};
if (!observe()) document.addEventListener('DOMContentLoaded', observe, {once: true});

const sentinel = %s;
document.addEventListener('click', (e) => {
	let anchor = null;
	for (let n = e.target; n; n = n.parentElement) {
		if (n.tagName === 'A') { anchor = n; break; }
	}
	const gesture = {
		anchor: !!anchor,
		target: anchor ? (anchor.getAttribute('target') || '') : '',
		href: anchor ? (anchor.href || '') : '',
	};
	if (gesture.anchor && gesture.target === sentinel) {
		e.preventDefault();
	}
	post({kind: 'gesture', gesture: gesture});
}, true);
})();`, helpers, jsEncode(binding), jsEncode(sentinel))
}

// QueryFirst returns a script resolving the first match of a CSS
// selector to its element description, null when nothing matches, or an
// invalid-selector marker.
func QueryFirst(selector string) string {
	return fmt.Sprintf(`(() => {
%s
try {
	const el = document.querySelector(%s);
	return el ? {element: describe(el)} : {};
} catch (e) {
	return {error: 'invalid-selector', detail: String(e)};
}
})()`, helpers, jsEncode(selector))
}

// QueryAll returns a script resolving every match of a CSS selector.
func QueryAll(selector string) string {
	return fmt.Sprintf(`(() => {
%s
try {
	return {elements: Array.from(document.querySelectorAll(%s)).map(describe)};
} catch (e) {
	return {error: 'invalid-selector', detail: String(e)};
}
})()`, helpers, jsEncode(selector))
}

// RemoveByXPath returns a script detaching the node at an XPath. It
// reports whether a node was actually detached; resolving nothing is a
// quiet false.
func RemoveByXPath(xpath string) string {
	return fmt.Sprintf(`(() => {
const r = document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null);
const el = r.singleNodeValue;
if (el && el.parentNode) { el.parentNode.removeChild(el); return true; }
return false;
})()`, jsEncode(xpath))
}
