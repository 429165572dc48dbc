// Package wordpress implements the WordPress REST API adapter.
//
// Posts and pages are pulled from /wp-json/wp/v2 with context=edit,
// paginated with the X-WP-TotalPages header, and mapped to post and page
// resources. Yoast SEO fields, post meta and ACF fields are flattened
// into the canonical seo and attributes maps.
package wordpress
