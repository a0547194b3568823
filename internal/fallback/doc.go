// Package fallback builds the page shown when an address cannot be resolved.
//
// The page never fails to build. It carries guidance derived from the host
// and three escape hatches the user can take by hand: opening the address
// directly, walking the relay list, and looking the address up in a web
// archive. Content locators get an extra action through the content
// gateway. Building a page performs no I/O.
//
// A page is built for one of two causes:
//   - Exhausted: every strategy failed; the cause names the last failure
//   - RenderBlock: a client reported that the target refused to render,
//     for example because of X-Frame-Options
//
// The category comes from ordered rules matched against the host. The
// first matching rule wins; a host that matches none is "generic". A
// rule's Guidance may contain HostPlaceholder, which is replaced with the
// host shown to the user.
package fallback
